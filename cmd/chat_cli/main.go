package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"logi-match/internal/chatclient"
	"logi-match/internal/config"
	"logi-match/internal/domain"
)

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadClientConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	client := chatclient.NewClient(cfg.APIURL, cfg.AccessToken, nil)

	var job *domain.JobContext
	if strings.TrimSpace(cfg.JobTitle) != "" {
		job = &domain.JobContext{JobID: cfg.JobID, JobTitle: cfg.JobTitle}
	}

	p := newPrinter(cfg.UserID)
	conv, err := chatclient.Open(ctx, client, chatclient.Options{
		UserID:       cfg.UserID,
		RecipientID:  cfg.RecipientID,
		JobContext:   job,
		PollInterval: time.Duration(cfg.PollInterval) * time.Second,
		HistoryLimit: cfg.HistoryLimit,
		OnUpdate:     p.update,
		Logger:       logger,
	})
	if errors.Is(err, chatclient.ErrCounterpartNotFound) {
		fmt.Println("El usuario con el que intentas chatear no existe. No se puede iniciar la conversacion.")
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("abrir conversacion: %v", err)
	}
	defer conv.Close()

	if cp := conv.Counterpart(); cp != nil {
		fmt.Printf("---- Chat con %s (%s) ----\n", cp.Name, cp.Role)
	} else {
		fmt.Println("---- Canal general ----")
	}
	fmt.Println("Escribe 'salir' para terminar o '/ask <pregunta>' para consultar al asistente.")

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.EqualFold(line, "salir"):
			fmt.Println("Saliendo del chat...")
			return
		case strings.HasPrefix(line, "/ask "):
			answer, err := client.Ask(ctx, strings.TrimPrefix(line, "/ask "))
			if err != nil {
				fmt.Printf("error consultando asistente: %v\n", err)
				continue
			}
			fmt.Printf("asistente > %s\n", answer)
		default:
			if _, err := conv.Send(line); err != nil {
				fmt.Printf("error enviando mensaje: %v\n", err)
			}
		}
	}
}

// printer imprime cada mensaje una sola vez y avisa de errores de envio nuevos.
type printer struct {
	mu      sync.Mutex
	userID  string
	seen    map[string]bool
	lastErr error
}

func newPrinter(userID string) *printer {
	return &printer{userID: userID, seen: make(map[string]bool)}
}

func messageKey(m domain.Message) string {
	return m.UserID + "|" + m.Text + "|" + m.Timestamp.UTC().Format(time.RFC3339Nano)
}

func (p *printer) update(s chatclient.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range s.Messages {
		key := messageKey(m)
		if p.seen[key] {
			continue
		}
		p.seen[key] = true
		who := m.UserID
		if who == p.userID {
			who = "Tu"
		}
		fmt.Printf("[%s] %s > %s\n", m.Timestamp.Local().Format("15:04"), who, m.Text)
	}
	if s.Err != nil && s.Err != p.lastErr {
		p.lastErr = s.Err
		fmt.Printf("error: %v (el mensaje queda en pantalla sin confirmar)\n", s.Err)
	}
}
