package internal

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,default=INFO"`

	// Delivery simulator. The poll interval paces the inbox scan; the
	// recency windows bound the rescan to recently written records.
	PollInterval    time.Duration `env:"POLL_INTERVAL,default=3s"`
	MessageWindow   time.Duration `env:"MESSAGE_RECENCY_WINDOW,default=5s"`
	CallWindow      time.Duration `env:"CALL_RECENCY_WINDOW,default=10s"`
	BroadcastLinger time.Duration `env:"BROADCAST_LINGER,default=100ms"`

	TelemetryInterval time.Duration `env:"TELEMETRY_INTERVAL,default=5s"`

	MaxContentLength int  `env:"MAX_CONTENT_LENGTH,default=2000"`
	LimitMessages    *int `env:"LIMIT_MESSAGES"`

	// Comma separated list of words masked by the outbound moderator.
	CensoredWords   string `env:"CENSORED_WORDS"`
	CharReplacement string `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`
}

// Words splits the censored word list, dropping empty entries.
func (c Config) Words() []string {
	var words []string
	for _, w := range strings.Split(c.CensoredWords, ",") {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, w)
		}
	}
	return words
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"MODERATION_CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
