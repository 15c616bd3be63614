package main

import (
	"context"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/RobertWHurst/socketry"
	"github.com/rs/zerolog"
)

type serverConfig struct {
	Addr             string `toml:"addr"`
	HeartbeatSeconds int    `toml:"heartbeat_seconds"`
}

func loadConfig(path string) serverConfig {
	cfg := serverConfig{Addr: ":8080"}
	if _, err := os.Stat(path); err != nil {
		return cfg
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		panic(err)
	}
	return cfg
}

type echoServer struct {
	log zerolog.Logger
}

func (s *echoServer) OnConnect(ctx context.Context, socket *socketry.Socket, info *socketry.ConnectionInfo) (*socketry.Session[string, struct{}], error) {
	s.log.Info().Str("remoteAddr", info.RemoteAddr).Msg("client connected")

	return socketry.NewSession(ctx, info.RemoteAddr, socket, func(handle *socketry.Session[string, struct{}]) socketry.SessionHandler[struct{}] {
		return &echoSession{handle: handle}
	}), nil
}

func (s *echoServer) OnDisconnect(ctx context.Context, id string) error {
	s.log.Info().Str("id", id).Msg("client disconnected")
	return nil
}

type echoSession struct {
	socketry.UnimplementedSession[struct{}]
	handle *socketry.Session[string, struct{}]
}

func (s *echoSession) OnText(ctx context.Context, text string) error {
	s.handle.Text(text)
	return nil
}

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	cfg := loadConfig("config.toml")

	server := socketry.NewServer[string, struct{}](&echoServer{log: log}, socketry.ServerConfig{
		Socket: socketry.SocketConfig{
			Heartbeat: time.Duration(cfg.HeartbeatSeconds) * time.Second,
		},
		Logger: &log,
	})

	log.Info().Str("addr", cfg.Addr).Msg("starting echo server")
	if err := socketry.ListenAndServe(context.Background(), cfg.Addr, server); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
