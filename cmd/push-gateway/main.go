// cmd/push-gateway/main.go
package main

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"storefront/internal/pkg/bootstrap"
	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/mq"
)

const (
	serviceName     = "push-gateway"
	listenAddr      = ":8088"
	consumerGroupID = "push-gateway-consumer-group"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool { // 简化处理，允许所有跨域
		return true
	},
}

// Hub 维护所有活跃的连接，并负责把订单事件广播给所有订阅者
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	lock       sync.RWMutex
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
	}
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.lock.Lock()
			h.clients[client] = struct{}{}
			h.lock.Unlock()
			log.Info().Str("remote", client.conn.RemoteAddr().String()).Msg("Client registered.")
		case client := <-h.unregister:
			h.lock.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.lock.Unlock()
			log.Info().Msg("Client unregistered.")
		case message := <-h.broadcast:
			h.lock.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// 发送缓冲写满说明消费端已经跟不上，直接放弃该连接
					go func(c *Client) { h.unregister <- c }(client)
				}
			}
			h.lock.RUnlock()
		}
	}
}

// Client 是一个WebSocket连接的代表
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// writePump 负责将send channel中的消息写入websocket，并维持心跳
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 负责消费Pong和客户端关闭帧
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func serveWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 256)}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// consumeOrderEvents 消费订单事件主题，把每条事件原样广播给所有连接
func consumeOrderEvents(hub *Hub) {
	cfg := bootstrap.GetCurrentConfig()
	reader := mq.NewKafkaReader(
		strings.Split(cfg.Infra.KafkaBrokers, ","),
		cfg.Infra.OrderEventsTopic,
		consumerGroupID,
	)
	defer reader.Close()

	log.Info().Str("topic", cfg.Infra.OrderEventsTopic).Msg("Consuming order events.")
	for {
		msg, err := reader.ReadMessage(context.Background())
		if err != nil {
			log.Error().Err(err).Msg("could not read order event, retrying")
			time.Sleep(5 * time.Second)
			continue
		}
		hub.broadcast <- msg.Value
	}
}

func main() {
	if err := bootstrap.Init(); err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(serviceName)

	hub := newHub()
	go hub.run()
	go consumeOrderEvents(hub)

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(hub, w, r)
	})
	http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	log.Info().Str("addr", listenAddr).Msg("Push gateway started.")
	if err := http.ListenAndServe(listenAddr, nil); err != nil {
		log.Fatal().Err(err).Msg("ListenAndServe failed")
	}
}
