package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/study-mentor/backend/internal/config"
	"github.com/zhouzirui/study-mentor/backend/internal/extract"
	"github.com/zhouzirui/study-mentor/backend/internal/logger"
	"github.com/zhouzirui/study-mentor/backend/internal/model/persona"
	"github.com/zhouzirui/study-mentor/backend/internal/service/document"
	"github.com/zhouzirui/study-mentor/backend/internal/service/gateway"
	"github.com/zhouzirui/study-mentor/backend/internal/service/prompt"
	"github.com/zhouzirui/study-mentor/backend/internal/service/tutor"
)

const consoleSession = "console"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] failed to load .env, using system environment: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	name := flag.String("name", "", "profile name sent before the first question")
	age := flag.String("age", "", "profile age sent before the first question")
	file := flag.String("file", "", "document to upload before the first question")
	flag.Parse()

	zl, err := logger.New(logger.Options{Level: "warn", Development: true})
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := newEngine(ctx, cfg, zl)
	if err != nil {
		log.Fatalf("failed to start tutor: %v", err)
	}

	if *name != "" || *age != "" {
		if _, err := engine.SaveProfile(ctx, consoleSession, *name, *age); err != nil {
			log.Fatalf("failed to save profile: %v", err)
		}
	}
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			log.Fatalf("failed to read %s: %v", *file, err)
		}
		if _, err := engine.Upload(ctx, consoleSession, *file, data); err != nil {
			log.Fatalf("failed to upload %s: %v", *file, err)
		}
	}

	if err := chat(ctx, engine, os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func newEngine(ctx context.Context, cfg *config.Config, zl *zap.Logger) (*tutor.Engine, error) {
	chatModel, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		return nil, err
	}
	gw, err := gateway.NewService(ctx, chatModel, prompt.SystemInstruction(persona.Mentor(), cfg.Prompt), zl)
	if err != nil {
		return nil, err
	}
	assembler, err := prompt.NewAssembler(cfg.Prompt)
	if err != nil {
		return nil, err
	}
	return tutor.NewEngine(tutor.Options{
		Documents: document.NewStore(document.NewMemoryBackend(), extract.NewRegistry(cfg.Document.Formats...), zl),
		Assembler: assembler,
		Gateway:   gw,
		Timeout:   cfg.AI.Timeout,
		Logger:    zl,
	})
}

// chat runs the console loop until EOF, "exit" or cancellation.
func chat(ctx context.Context, engine *tutor.Engine, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Bot:", persona.Mentor().OpeningLine)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		reply, err := engine.Ask(ctx, consoleSession, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Fprintln(out, "Bot: [error]", err)
			continue
		}
		fmt.Fprintln(out, "Bot:", reply)
	}
}
