package render

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Message is the JSON frame sent to websocket clients.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// GridState is the full picture a newly connected client starts from.
type GridState struct {
	Rows       int               `json:"rows"`
	Columns    int               `json:"columns"`
	Cells      []SetCellCommand  `json:"cells"`
	References map[string]string `json:"references"`
	Status     string            `json:"status"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub is a Renderer that keeps the current grid model and streams every
// change to connected websocket clients.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*wsClient]struct{}
	rows, cols int
	cells      map[Cell]SetCellCommand
	references map[string]string
	status     string
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*wsClient]struct{}),
		cells:      make(map[Cell]SetCellCommand),
		references: make(map[string]string),
		logger:     logger.Named("hub"),
	}
}

func (h *Hub) Resize(rows, columns int) error {
	h.mu.Lock()
	h.rows, h.cols = rows, columns
	h.cells = make(map[Cell]SetCellCommand)
	h.mu.Unlock()
	return h.broadcast(Message{Type: "resize", Data: ResizeCommand{Rows: rows, Columns: columns}})
}

func (h *Hub) SetCell(row, col int, label, priceText string, highlighted bool) error {
	cmd := SetCellCommand{Cell: Cell{Row: row, Col: col}, Label: label, PriceText: priceText, Highlighted: highlighted}
	h.mu.Lock()
	h.cells[cmd.Cell] = cmd
	h.mu.Unlock()
	return h.broadcast(Message{Type: cmd.Kind(), Data: cmd})
}

func (h *Hub) RestoreCell(row, col int, label, priceText string) error {
	cmd := RestoreCellCommand{Cell: Cell{Row: row, Col: col}, Label: label, PriceText: priceText}
	h.mu.Lock()
	h.cells[cmd.Cell] = SetCellCommand{Cell: cmd.Cell, Label: label, PriceText: priceText}
	h.mu.Unlock()
	return h.broadcast(Message{Type: cmd.Kind(), Data: cmd})
}

func (h *Hub) SetReference(label, priceText string) error {
	h.mu.Lock()
	h.references[label] = priceText
	h.mu.Unlock()
	return h.broadcast(Message{Type: "reference", Data: ReferenceCommand{Label: label, PriceText: priceText}})
}

func (h *Hub) SetStatus(text string) error {
	h.mu.Lock()
	h.status = text
	h.mu.Unlock()
	return h.broadcast(Message{Type: "status", Data: StatusCommand{Text: text}})
}

// State returns a copy of the current grid model.
func (h *Hub) State() GridState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stateLocked()
}

func (h *Hub) stateLocked() GridState {
	st := GridState{
		Rows:       h.rows,
		Columns:    h.cols,
		Cells:      make([]SetCellCommand, 0, len(h.cells)),
		References: make(map[string]string, len(h.references)),
		Status:     h.status,
	}
	for _, c := range h.cells {
		st.Cells = append(st.Cells, c)
	}
	sort.Slice(st.Cells, func(i, j int) bool {
		if st.Cells[i].Row != st.Cells[j].Row {
			return st.Cells[i].Row < st.Cells[j].Row
		}
		return st.Cells[i].Col < st.Cells[j].Col
	})
	for k, v := range h.references {
		st.References[k] = v
	}
	return st
}

func (h *Hub) broadcast(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("dropping message for slow client", zap.String("type", msg.Type))
		}
	}
	return nil
}

// ServeHTTP upgrades the request and registers the client. The client first
// receives a "snapshot" frame with the full GridState.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, sendBufferSize)}

	// Register under the same lock that builds the snapshot so no update
	// falls between the two.
	h.mu.Lock()
	snapshot, err := json.Marshal(Message{Type: "snapshot", Data: h.stateLocked()})
	if err == nil {
		c.send <- snapshot
	}
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("client connected", zap.Int("total_clients", total))

	go h.writePump(c)
	go h.readPump(c)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// Run closes all clients once ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	<-ctx.Done()
	h.Close()
	return nil
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("client disconnected", zap.Int("total_clients", total))
}

// readPump only services control frames; clients never send commands.
func (h *Hub) readPump(c *wsClient) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("unexpected close", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
