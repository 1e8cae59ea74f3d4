package status

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	INFO = iota
	ERROR
	PROGRESS
)

type status struct {
	Message  string    `json:"message"`
	Time     time.Time `json:"time"`
	Type     int       `json:"type"`
	Progress float32   `json:"progress"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writePump() {
	ticker := time.NewTicker(time.Second * 30)
	defer func() {
		ticker.Stop()
		unregisterClient(c)
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(40 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("[status] ws write msg error: %v", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(40 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[status] ws write ping error: %v", err)
				return
			}
		}
	}
}

// readPump drains client frames so close and pong control messages are
// processed, and drops the client once the connection fails.
func (c *client) readPump() {
	defer unregisterClient(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// NewClient subscribes conn to status broadcasts. The client immediately
// receives the last status, or a greeting when there was none.
func NewClient(conn *websocket.Conn) *client {
	c := &client{conn: conn, send: make(chan []byte, 32)}
	globalLock.Lock()
	first := lastMessage
	if first == nil {
		first = encode(&status{Message: "Connected", Time: time.Now(), Type: INFO})
	}
	c.send <- first
	broadcastList[c] = true
	globalLock.Unlock()

	go c.writePump()
	go c.readPump()
	return c
}

var statusBroadcast chan *status
var broadcastList map[*client]bool
var globalLock sync.Mutex
var lastMessage []byte = nil

// unregisterClient is called by both pumps; only the first call closes send.
func unregisterClient(c *client) {
	globalLock.Lock()
	defer globalLock.Unlock()
	if broadcastList[c] {
		delete(broadcastList, c)
		close(c.send)
	}
}

func encode(s *status) []byte {
	data, err := json.Marshal(s)
	if err != nil {
		panic(err)
	}
	return data
}

func init() {
	statusBroadcast = make(chan *status, 16)
	broadcastList = make(map[*client]bool)
	go func() {
		for s := range statusBroadcast {
			data := encode(s)
			globalLock.Lock()
			lastMessage = data
			for c := range broadcastList {
				select {
				case c.send <- data:
				default:
					log.Printf("[status] Client too slow, dropping status %q", s.Message)
				}
			}
			globalLock.Unlock()
		}
	}()
}

func Status(msg string, _type int, progress float32) {
	if math.IsNaN(float64(progress)) || math.IsInf(float64(progress), 0) {
		progress = 0
	}
	statusBroadcast <- &status{
		Message:  msg,
		Time:     time.Now(),
		Type:     _type,
		Progress: progress}
}

func Info(format string, a ...interface{}) {
	Status(fmt.Sprintf(format, a...), INFO, 0.0)
}

func Error(format string, a ...interface{}) {
	Status(fmt.Sprintf(format, a...), ERROR, 0.0)
}

func Progress(progress float32, format string, a ...interface{}) {
	Status(fmt.Sprintf(format, a...), PROGRESS, progress)
}

// Clients returns the number of subscribed connections.
func Clients() int {
	globalLock.Lock()
	defer globalLock.Unlock()
	return len(broadcastList)
}
