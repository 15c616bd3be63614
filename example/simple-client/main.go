package main

import (
	"bufio"
	"context"
	"os"

	"github.com/RobertWHurst/socketry"
	"github.com/rs/zerolog"
)

type client struct {
	socketry.UnimplementedSession[struct{}]
	log zerolog.Logger
}

func (c *client) OnText(ctx context.Context, text string) error {
	c.log.Info().Str("text", text).Msg("received message")
	return nil
}

func (c *client) OnBinary(ctx context.Context, data []byte) error {
	c.log.Info().Int("bytes", len(data)).Msg("received binary message")
	return nil
}

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	handle, termination, err := socketry.Connect(context.Background(), func(*socketry.Session[string, struct{}]) socketry.SessionHandler[struct{}] {
		return &client{log: log}
	}, socketry.ClientConfig{
		URL:    "ws://127.0.0.1:8080",
		Logger: &log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect failed")
	}

	go func() {
		if err := <-termination; err != nil {
			log.Fatal().Err(err).Msg("client terminated")
		}
		os.Exit(0)
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "exit" {
			log.Info().Msg("exiting...")
			handle.Close(&socketry.CloseFrame{
				Code:   socketry.CloseCodeNormal,
				Reason: "adios!",
			})
			<-handle.Done()
			return
		}
		log.Info().Str("text", line).Msg("sending")
		handle.Text(line)
	}
}
