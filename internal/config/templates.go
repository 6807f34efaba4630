package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# LLM Trade Verifier Configuration

[database]
# SQLite database file (defaults to verifier.db in this directory)
# path = "/path/to/verifier.db"

[pricing]
# Closing price source: "yahoo", "sample" or "auto"
# auto serves the sample test codes offline and everything else from Yahoo
source = "auto"
base_url = "https://query1.finance.yahoo.com"
timeout = "30s"
max_retries = 2
# Appended to stock codes to form exchange symbols
market_suffix = ".T"
timezone = "Asia/Tokyo"

[server]
addr = ":8000"
read_timeout = "15s"
write_timeout = "30s"

[import]
# Responses are read from <responses_dir>/<yyyymmdd>/<file>
# responses_dir = "/path/to/ai_responses"
fixed_stock_code = "7203"
# Used when a response has no recognisable close prediction
default_predicted_price = 3000.0

[import.response_files]
"claude_response.md" = "claude-3-sonnet"
"chatgpt_response.md" = "chatgpt-4"
"gemini_response.md" = "gemini-pro"

[prompt]
# output_dir = "/path/to/prompts"

[llm]
# Model used by "verifier prompt ask"
model = "gpt-4o"
# base_url = "https://api.openai.com/v1"

[ui]
color_enabled = true
date_format = "2006-01-02"

[logging]
level = "info"
console = true
file = true
max_size = 100
max_backups = 7
max_age = 30
`

const credentialsTemplate = `# LLM Trade Verifier Credentials
# Keep this file private. OPENAI_API_KEY overrides the value below.

[openai]
api_key = ""
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")

	// Use restricted permissions for credentials file
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}
	return nil
}

// Path returns the main config file path inside configDir.
func Path(configDir string) string {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return filepath.Join(configDir, "config.toml")
}
