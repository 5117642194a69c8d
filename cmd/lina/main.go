package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"lina/internal/api"
	"lina/internal/conversation"
	"lina/internal/genai"
	"lina/internal/lockfile"
	"lina/internal/messaging"
	"lina/internal/relay"
	"lina/internal/responder"
	"lina/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for the instance lock.
	DefaultStateDir = "/var/lib/lina"
	// DefaultAPIAddr is the default listen address.
	DefaultAPIAddr = ":5000"
	// GroqBaseURL is the OpenAI-compatible endpoint of the Groq backend.
	GroqBaseURL = "https://api.groq.com/openai/v1"
	// GroqChatModel is the chat model used when the Groq backend is selected.
	GroqChatModel = "llama-3.1-70b-versatile"
	// GroqTranscribeModel is the Whisper model offered by Groq.
	GroqTranscribeModel = "whisper-large-v3"
)

// Config holds environment configuration.
type Config struct {
	GatewayProvider string
	ZAPIInstance    string
	StateDir        string
	APIAddr         string
	GroqKey         string
	OpenAIKey       string
	LLMBaseURL      string
	LLMModel        string
	TranscribeModel string
	TranscribeLang  string
}

// Flags holds command line flag values.
type Flags struct {
	gateway        *string
	stateDir       *string
	apiAddr        *string
	llmBaseURL     *string
	llmModel       *string
	transcribeLang *string
}

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	// One live instance per state directory: conversation state is
	// process-local, a second instance would split every dialogue.
	lock, err := lockfile.Acquire(*flags.stateDir)
	if err != nil {
		slog.Error("Failed to acquire instance lock", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	gateway, err := buildGatewayService(*flags.gateway)
	if err != nil {
		slog.Error("Failed to configure messaging gateway", "error", err)
		os.Exit(1)
	}

	backend := buildGenAIClient(config, flags)

	store := conversation.NewStore()

	// Assign through the concrete nil check so an unconfigured backend stays a
	// nil interface rather than a typed nil.
	var chatBackend responder.ChatBackend
	var transcriber relay.Transcriber
	if backend != nil {
		chatBackend = backend
		transcriber = backend
	}
	rsp := responder.NewResponder(chatBackend, store)
	relayOpts := []relay.Option{}
	if *flags.transcribeLang != "" {
		relayOpts = append(relayOpts, relay.WithLanguageHint(*flags.transcribeLang))
	}
	rl := relay.NewRelay(gateway, transcriber, rsp, relayOpts...)

	server := api.NewServer(rl, store,
		messaging.NormalizeConfig{Instance: config.ZAPIInstance},
		gateway != nil, backend != nil)

	slog.Info("Lina WhatsApp Agent started", "addr", *flags.apiAddr, "gateway", *flags.gateway, "llm_configured", backend != nil)
	if err := server.Run(*flags.apiAddr); err != nil {
		slog.Error("Lina failed to run", "error", err)
		os.Exit(1)
	}
}

// initializeLogger sets up structured logging. Debug level is opt-in via LINA_DEBUG.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("LINA_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file.
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		GatewayProvider: util.GetEnvDefault("GATEWAY_PROVIDER", "zapi"),
		ZAPIInstance:    os.Getenv("Z_API_INSTANCE"),
		StateDir:        util.GetEnvDefault("LINA_STATE_DIR", DefaultStateDir),
		APIAddr:         os.Getenv("API_ADDR"),
		GroqKey:         os.Getenv("GROQ_API_KEY"),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		LLMBaseURL:      os.Getenv("LLM_BASE_URL"),
		LLMModel:        os.Getenv("LLM_MODEL"),
		TranscribeModel: os.Getenv("TRANSCRIBE_MODEL"),
		TranscribeLang:  util.GetEnvDefault("TRANSCRIBE_LANG", relay.DefaultLanguageHint),
	}

	// PORT is kept for platforms that inject it.
	if config.APIAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			config.APIAddr = ":" + port
		} else {
			config.APIAddr = DefaultAPIAddr
		}
	}

	slog.Debug("environment variables loaded",
		"GATEWAY_PROVIDER", config.GatewayProvider,
		"Z_API_INSTANCE_SET", config.ZAPIInstance != "",
		"GROQ_API_KEY_SET", config.GroqKey != "",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr)
	return config
}

// parseCommandLineFlags defines flags with environment-derived defaults.
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		gateway:        flag.String("gateway", config.GatewayProvider, "messaging gateway provider: zapi or twilio (overrides $GATEWAY_PROVIDER)"),
		stateDir:       flag.String("state-dir", config.StateDir, "state directory for the instance lock (overrides $LINA_STATE_DIR)"),
		apiAddr:        flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR / $PORT)"),
		llmBaseURL:     flag.String("llm-base-url", config.LLMBaseURL, "OpenAI-compatible base URL (overrides $LLM_BASE_URL)"),
		llmModel:       flag.String("llm-model", config.LLMModel, "chat model name (overrides $LLM_MODEL)"),
		transcribeLang: flag.String("transcribe-lang", config.TranscribeLang, "transcription language hint (overrides $TRANSCRIBE_LANG)"),
	}
	flag.Parse()
	return flags
}

// buildGatewayService constructs the configured messaging gateway.
func buildGatewayService(provider string) (messaging.Service, error) {
	switch provider {
	case "twilio":
		return messaging.NewTwilioService()
	default:
		return messaging.NewZAPIService()
	}
}

// buildGenAIClient wires the language-model backend. Groq credentials take
// priority; otherwise the OpenAI defaults apply. A missing credential is not
// fatal: the responder degrades every reply to its fallback string instead.
func buildGenAIClient(config Config, flags Flags) *genai.Client {
	var opts []genai.Option

	switch {
	case config.GroqKey != "":
		opts = append(opts,
			genai.WithAPIKey(config.GroqKey),
			genai.WithBaseURL(GroqBaseURL),
			genai.WithModel(GroqChatModel),
			genai.WithTranscriptionModel(GroqTranscribeModel))
	case config.OpenAIKey != "":
		opts = append(opts, genai.WithAPIKey(config.OpenAIKey))
	}

	if *flags.llmBaseURL != "" {
		opts = append(opts, genai.WithBaseURL(*flags.llmBaseURL))
	}
	if *flags.llmModel != "" {
		opts = append(opts, genai.WithModel(*flags.llmModel))
	}
	if config.TranscribeModel != "" {
		opts = append(opts, genai.WithTranscriptionModel(config.TranscribeModel))
	}

	client, err := genai.NewClient(opts...)
	if err != nil {
		slog.Error("Language-model backend unavailable, replies will degrade to the fallback message", "error", err)
		return nil
	}
	return client
}
