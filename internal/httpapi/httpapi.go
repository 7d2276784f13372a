// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package httpapi serves the latest reading over HTTP and pushes new
// readings to websocket clients.
//
//	GET /healthz
//	GET /api/reading
//	GET /ws
package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/GermanBionicSystems/sht3x/internal/sampler"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const writeTimeout = 5 * time.Second

// Reading is the JSON form of sampler.Reading. Values that failed to read
// are omitted and their error is listed instead.
type Reading struct {
	Time        time.Time `json:"time"`
	Temperature *float64  `json:"temperature_c,omitempty"`
	Humidity    *float64  `json:"humidity_rh,omitempty"`
	Status      *uint16   `json:"status,omitempty"`
	Errors      []string  `json:"errors,omitempty"`
}

func fromReading(r sampler.Reading) Reading {
	out := Reading{Time: r.Time}
	addErr := func(err error) {
		if err != nil {
			out.Errors = append(out.Errors, err.Error())
		}
	}
	if r.Err != nil {
		addErr(r.Err)
		return out
	}
	if r.TemperatureErr == nil {
		t := r.Temperature
		out.Temperature = &t
	}
	addErr(r.TemperatureErr)
	if r.HumidityErr == nil {
		h := r.Humidity
		out.Humidity = &h
	}
	addErr(r.HumidityErr)
	if r.StatusRead {
		if r.StatusErr == nil {
			s := uint16(r.Status)
			out.Status = &s
		}
		addErr(r.StatusErr)
	}
	return out
}

// wsConn is the part of *websocket.Conn used to push readings.
type wsConn interface {
	WriteJSON(v any) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// client serializes writes to one websocket connection; a connection allows
// a single writer.
type client struct {
	mu   sync.Mutex
	conn wsConn
}

// Server keeps the latest reading. It is a sampler.Sink.
type Server struct {
	log      *log.Logger
	engine   *gin.Engine
	upgrader websocket.Upgrader

	mu      sync.Mutex
	latest  *Reading
	clients map[*client]struct{}
}

// New returns a Server. logger defaults to log.Default().
func New(logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		log:     logger,
		engine:  gin.New(),
		clients: map[*client]struct{}{},
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.engine.Use(gin.Recovery())
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	s.engine.GET("/api/reading", s.handleReading)
	s.engine.GET("/ws", s.handleWebSocket)
	return s
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Write stores r and broadcasts it. Implements sampler.Sink.
//
// mu is not held while writing to clients so a slow client delays neither
// GET /api/reading nor new connections.
func (s *Server) Write(ctx context.Context, r sampler.Reading) error {
	out := fromReading(r)
	s.mu.Lock()
	s.latest = &out
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()
	for _, c := range clients {
		c.mu.Lock()
		s.send(c, &out)
		c.mu.Unlock()
	}
	return nil
}

// send must be called with c.mu held.
func (s *Server) send(c *client, r *Reading) {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteJSON(r); err != nil {
		s.log.Printf("httpapi: websocket write: %v", err)
		s.remove(c)
	}
}

// remove unregisters c and closes its connection once.
func (s *Server) remove(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()
	if ok {
		c.conn.Close()
	}
}

// add registers c and returns the reading to send first. c.mu must be held
// so that a concurrent broadcast is delivered after it.
func (s *Server) add(c *client) *Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
	return s.latest
}

func (s *Server) handleReading(c *gin.Context) {
	s.mu.Lock()
	latest := s.latest
	s.mu.Unlock()
	if latest == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no reading yet"})
		return
	}
	c.JSON(http.StatusOK, latest)
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Printf("httpapi: websocket upgrade: %v", err)
		return
	}
	cl := &client{conn: conn}
	cl.mu.Lock()
	if latest := s.add(cl); latest != nil {
		s.send(cl, latest)
	}
	cl.mu.Unlock()

	// Clients never send anything; reading detects the disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.remove(cl)
}

func (s *Server) clientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

var _ sampler.Sink = &Server{}
