package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/bdobrica/kokoro/common/environment"
	"github.com/bdobrica/kokoro/common/version"
	"github.com/bdobrica/kokoro/internal/kokoro/app"
	"github.com/bdobrica/kokoro/internal/kokoro/matrix"
)

func main() {
	// A .env file is a convenience for local runs; absence is not an error.
	_ = godotenv.Load()

	fmt.Printf("Kokoro conversational bot\n")
	fmt.Printf("Version: %s\n", version.Version)
	fmt.Printf("Commit: %s\n", version.GitCommit)
	fmt.Printf("Build Time: %s\n", version.BuildTime)
	fmt.Println()

	config, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	kokoro, err := app.New(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize Kokoro: %v\n", err)
		os.Exit(1)
	}
	defer kokoro.Stop()

	if err := kokoro.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running Kokoro: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads configuration from environment variables.
func loadConfig() (*app.Config, error) {
	homeserver, err := environment.RequiredString("MATRIX_HOMESERVER")
	if err != nil {
		return nil, err
	}
	userID, err := environment.RequiredString("MATRIX_USER_ID")
	if err != nil {
		return nil, err
	}
	accessToken, err := environment.RequiredString("MATRIX_ACCESS_TOKEN")
	if err != nil {
		return nil, err
	}
	apiKey, err := environment.RequiredString("OPENAI_API_KEY")
	if err != nil {
		return nil, err
	}

	return &app.Config{
		DatabasePath: environment.StringOr("DATABASE_PATH", "./kokoro.db"),
		DataDir:      environment.StringOr("KOKORO_DATA_DIR", "./data"),
		ProfilePath:  environment.StringOr("KOKORO_PROFILE", ""),
		Matrix: matrix.Config{
			Homeserver:   homeserver,
			UserID:       userID,
			AccessToken:  accessToken,
			AllowedRooms: environment.StringSliceOr("MATRIX_ROOMS", nil),
		},
		OpenAIAPIKey:   apiKey,
		OpenAIBaseURL:  environment.StringOr("OPENAI_BASE_URL", ""),
		Model:          environment.StringOr("KOKORO_MODEL", ""),
		ContextWindow:  environment.IntOr("KOKORO_CONTEXT_WINDOW", 0),
		MaxReplyTokens: environment.IntOr("KOKORO_MAX_REPLY_TOKENS", 0),
	}, nil
}
