package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ErrSetupCancelled is returned when the user declines to save
var ErrSetupCancelled = errors.New("setup cancelled")

// RunSetupWizard asks for each setting on in, echoes prompts to out and
// saves the result to path
func RunSetupWizard(in io.Reader, out io.Writer, path string) (*Config, error) {
	reader := bufio.NewReader(in)
	ask := func(prompt, def string) string {
		fmt.Fprintf(out, "   %s [%s]: ", prompt, def)
		line, _ := reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" {
			return def
		}
		return line
	}

	fmt.Fprintln(out, "╔════════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(out, "║               Media Date Sync - First Time Setup               ║")
	fmt.Fprintln(out, "╚════════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "This configuration will be saved to:", path)
	fmt.Fprintln(out)

	cfg := Default()

	// Media inspector
	fmt.Fprintln(out, "1. Where is the mediainfo binary?")
	if _, err := exec.LookPath(cfg.MediaInfoPath); err != nil {
		fmt.Fprintln(out, "   (mediainfo was not found on PATH; videos and audio will have no encoded date until it is installed)")
	}
	cfg.MediaInfoPath = ask("Path", cfg.MediaInfoPath)

	// Extraction
	fmt.Fprintln(out)
	fmt.Fprintln(out, "2. How many files should be inspected at once?")
	cfg.WindowSize = askInt(ask, "Window size", cfg.WindowSize)
	cfg.ExtractTimeout = askDuration(ask, "Timeout per file", cfg.ExtractTimeout)

	// Sync
	fmt.Fprintln(out)
	fmt.Fprintln(out, "3. How many files should be written per progress step?")
	cfg.ChunkSize = askInt(ask, "Chunk size", cfg.ChunkSize)

	// Cache
	fmt.Fprintln(out)
	fmt.Fprintln(out, "4. Where should encoded dates be cached between runs?")
	cfg.CacheDir = ask("Cache dir", cfg.CacheDir)

	// Summary
	fmt.Fprintln(out)
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════════════")
	fmt.Fprintln(out, "Configuration Summary:")
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════════════")
	fmt.Fprintf(out, "  mediainfo:   %s\n", cfg.MediaInfoPath)
	fmt.Fprintf(out, "  Window size: %d\n", cfg.WindowSize)
	fmt.Fprintf(out, "  Timeout:     %s\n", cfg.ExtractTimeout)
	fmt.Fprintf(out, "  Chunk size:  %d\n", cfg.ChunkSize)
	fmt.Fprintf(out, "  Cache dir:   %s\n", cfg.CacheDir)
	fmt.Fprintln(out)

	confirm := strings.ToLower(ask("Save this configuration? (Y/n)", "y"))
	if confirm == "n" || confirm == "no" {
		return nil, ErrSetupCancelled
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "✓ Configuration saved to:", path)
	fmt.Fprintln(out)
	return cfg, nil
}

func askInt(ask func(string, string) string, prompt string, def int) int {
	n, err := strconv.Atoi(ask(prompt, strconv.Itoa(def)))
	if err != nil || n < 1 {
		return def
	}
	return n
}

func askDuration(ask func(string, string) string, prompt string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(ask(prompt, def.String()))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
