package chatclient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"logi-match/internal/domain"
)

const (
	DefaultPollInterval = 3 * time.Second
	DefaultHistoryLimit = 50
)

var (
	ErrConversationClosed = errors.New("conversation closed")
	ErrSendFailed         = errors.New("failed to send")
	ErrRefreshFailed      = errors.New("failed to refresh")
	ErrMessageEmpty       = errors.New("message text is empty")
	ErrUserRequired       = errors.New("user id is required")
)

// State es la fase de una conversacion abierta.
type State int

const (
	StateLoading State = iota
	StateReady
	StateSending
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSending:
		return "sending"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// API es lo que la conversacion necesita del servidor. *Client la implementa.
type API interface {
	StartConversation(ctx context.Context, recipientID string, job *domain.JobContext, limit int) (StartResult, error)
	SendMessage(ctx context.Context, channelName string, msg domain.Message) SendResult
	FetchHistory(ctx context.Context, channelName string, limit int) HistoryResult
}

// Snapshot es una copia consistente del estado visible.
type Snapshot struct {
	Channel  string
	State    State
	Messages []domain.Message
	Err      error
}

type Options struct {
	UserID       string
	RecipientID  string
	JobContext   *domain.JobContext
	PollInterval time.Duration
	HistoryLimit int
	// OnUpdate se invoca fuera del lock despues de cada cambio; puede llegar
	// desde el goroutine de polling o desde el de escritura.
	OnUpdate func(Snapshot)
	Logger   *zap.Logger
	Now      func() time.Time
}

// Conversation mantiene la lista de mensajes de un canal al dia por polling y
// muestra los envios propios de inmediato.
type Conversation struct {
	api    API
	opts   Options
	logger *zap.Logger

	mu          sync.Mutex
	channel     string
	counterpart *domain.Profile
	greeting    bool
	messages    []domain.Message
	watermark   time.Time
	state       State
	pending     int
	lastErr     error

	cancel    context.CancelFunc
	writeCtx  context.Context
	done      chan struct{}
	writes    sync.WaitGroup
	closeOnce sync.Once
}

// Open arranca la conversacion: valida la contraparte, carga el historial y
// lanza el polling. Si algo falla antes del polling no queda nada corriendo.
func Open(ctx context.Context, api API, opts Options) (*Conversation, error) {
	opts.UserID = strings.TrimSpace(opts.UserID)
	opts.RecipientID = strings.TrimSpace(opts.RecipientID)
	if opts.UserID == "" {
		return nil, ErrUserRequired
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	start, err := api.StartConversation(ctx, opts.RecipientID, opts.JobContext, opts.HistoryLimit)
	if err != nil {
		return nil, err
	}
	if start.ChannelName == "" {
		start.ChannelName = domain.ChannelFor(opts.UserID, opts.RecipientID)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c := &Conversation{
		api:         api,
		opts:        opts,
		logger:      logger.With(zap.String("channel", start.ChannelName)),
		channel:     start.ChannelName,
		counterpart: start.Counterpart,
		greeting:    start.GreetingSent,
		state:       StateLoading,
		cancel:      cancel,
		writeCtx:    context.WithoutCancel(ctx),
		done:        make(chan struct{}),
	}

	c.mu.Lock()
	c.mergeLocked(start.Messages)
	c.state = StateReady
	c.mu.Unlock()

	go c.pollLoop(loopCtx)
	c.notify()
	return c, nil
}

func (c *Conversation) pollLoop(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil && !errors.Is(err, ErrConversationClosed) {
				c.logger.Debug("poll failed", zap.Error(err))
			}
		}
	}
}

// Refresh lee el historial y agrega solo lo nuevo.
func (c *Conversation) Refresh(ctx context.Context) error {
	if c.closed() {
		return ErrConversationClosed
	}
	res := c.api.FetchHistory(ctx, c.channel, c.opts.HistoryLimit)
	if !res.Success {
		return fmt.Errorf("%w: %s", ErrRefreshFailed, res.Error)
	}

	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return ErrConversationClosed
	}
	added := c.mergeLocked(res.Messages)
	c.mu.Unlock()

	if added > 0 {
		c.notify()
	}
	return nil
}

// Send agrega el mensaje a la lista local antes de escribirlo y escribe en
// segundo plano. Un fallo de escritura queda en Err sin retirar el mensaje.
func (c *Conversation) Send(text string) (domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Message{}, ErrMessageEmpty
	}

	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return domain.Message{}, ErrConversationClosed
	}
	msg := domain.Message{
		ChannelID:   c.channel,
		UserID:      c.opts.UserID,
		RecipientID: c.opts.RecipientID,
		Text:        text,
		Timestamp:   domain.MessageTime(c.opts.Now()),
		JobContext:  c.opts.JobContext,
	}
	c.messages = append(c.messages, msg)
	sortByTimestamp(c.messages)
	c.pending++
	c.state = StateSending
	c.writes.Add(1)
	c.mu.Unlock()
	c.notify()

	go c.write(msg)
	return msg, nil
}

func (c *Conversation) write(msg domain.Message) {
	defer c.writes.Done()
	res := c.api.SendMessage(c.writeCtx, c.channel, msg)

	c.mu.Lock()
	c.pending--
	if !res.Success {
		c.lastErr = fmt.Errorf("%w: %s", ErrSendFailed, res.Error)
	}
	if c.state != StateClosed && c.pending == 0 {
		c.state = StateReady
	}
	closed := c.state == StateClosed
	c.mu.Unlock()

	if !res.Success {
		c.logger.Warn("send failed", zap.String("error", res.Error))
	}
	if !closed {
		c.notify()
	}
}

// Close detiene el polling y espera las escrituras en curso. Es idempotente.
func (c *Conversation) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()

		c.cancel()
		<-c.done
		c.writes.Wait()
	})
}

// mergeLocked agrega los mensajes con timestamp estrictamente posterior a la
// marca de agua, descartando duplicados (mismo autor, texto y timestamp).
// Solo lo que viene del servidor mueve la marca.
func (c *Conversation) mergeLocked(fetched []domain.Message) int {
	newest := c.watermark
	added := 0
	for _, m := range fetched {
		if !m.Timestamp.After(c.watermark) {
			continue
		}
		if m.Timestamp.After(newest) {
			newest = m.Timestamp
		}
		if c.containsLocked(m) {
			continue
		}
		c.messages = append(c.messages, m)
		added++
	}
	c.watermark = newest
	if added > 0 {
		sortByTimestamp(c.messages)
	}
	return added
}

func (c *Conversation) containsLocked(m domain.Message) bool {
	for _, existing := range c.messages {
		if existing.SameAs(m) {
			return true
		}
	}
	return false
}

func sortByTimestamp(msgs []domain.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}

func (c *Conversation) notify() {
	if c.opts.OnUpdate == nil {
		return
	}
	c.opts.OnUpdate(c.Snapshot())
}

func (c *Conversation) closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateClosed
}

func (c *Conversation) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Channel:  c.channel,
		State:    c.state,
		Messages: append([]domain.Message(nil), c.messages...),
		Err:      c.lastErr,
	}
}

func (c *Conversation) Messages() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Message{}, c.messages...)
}

func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err devuelve el ultimo error de envio.
func (c *Conversation) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Conversation) Channel() string { return c.channel }

func (c *Conversation) Counterpart() *domain.Profile { return c.counterpart }

// GreetingSent indica si el servidor envio el saludo automatico al abrir.
func (c *Conversation) GreetingSent() bool { return c.greeting }
