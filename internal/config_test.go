package internal

import (
	"testing"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("BADGER_FILEPATH", "/tmp/badger")
	t.Setenv("BLUGE_FILEPATH", "/tmp/bluge")

	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	req.NoError(err)

	req.Equal("INFO", cfg.LogLevel)
	req.Equal(3*time.Second, cfg.PollInterval)
	req.Equal(5*time.Second, cfg.MessageWindow)
	req.Equal(10*time.Second, cfg.CallWindow)
	req.Equal(100*time.Millisecond, cfg.BroadcastLinger)
	req.Equal(2000, cfg.MaxContentLength)
	req.Nil(cfg.LimitMessages)
	req.Equal("*", cfg.CharReplacement)
}

func TestConfig_RequiresStorePaths(t *testing.T) {
	req := require.New(t)
	t.Setenv("BLUGE_FILEPATH", "/tmp/bluge")

	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	req.Error(err)
}

func TestConfig_Words(t *testing.T) {
	req := require.New(t)

	cfg := Config{CensoredWords: "badger, snake ,,mushroom "}
	req.Equal([]string{"badger", "snake", "mushroom"}, cfg.Words())

	req.Nil(Config{}.Words())
}

func TestCharacterRune(t *testing.T) {
	req := require.New(t)

	r, err := CharacterRune("#")
	req.NoError(err)
	req.Equal('#', r)

	_, err = CharacterRune("")
	req.Error(err)

	_, err = CharacterRune("**")
	req.Error(err)
}
