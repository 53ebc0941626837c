package chatclient

import (
	"context"
	"sort"
	"sync"

	"logi-match/internal/domain"
)

// fakeAPI simula el servidor de chat sobre un mapa en memoria.
type fakeAPI struct {
	mu         sync.Mutex
	channels   map[string][]domain.Message
	startErr   error
	sendGate   chan struct{}
	failSends  bool
	fetchCalls int
	sendCalls  int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{channels: make(map[string][]domain.Message)}
}

func (f *fakeAPI) StartConversation(_ context.Context, recipientID string, _ *domain.JobContext, _ int) (StartResult, error) {
	if f.startErr != nil {
		return StartResult{}, f.startErr
	}
	return StartResult{}, nil
}

func (f *fakeAPI) SendMessage(_ context.Context, channelName string, msg domain.Message) SendResult {
	if f.sendGate != nil {
		<-f.sendGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	if f.failSends {
		return SendResult{Success: false, Error: "Failed to store message"}
	}
	msg.ChannelID = channelName
	f.channels[channelName] = append(f.channels[channelName], msg)
	return SendResult{Success: true, Message: msg}
}

func (f *fakeAPI) FetchHistory(_ context.Context, channelName string, _ int) HistoryResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	out := append([]domain.Message{}, f.channels[channelName]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return HistoryResult{Success: true, Messages: out}
}

func (f *fakeAPI) put(channelName string, msg domain.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg.ChannelID = channelName
	f.channels[channelName] = append(f.channels[channelName], msg)
}

func (f *fakeAPI) stored(channelName string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.channels[channelName])
}

func (f *fakeAPI) fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}
