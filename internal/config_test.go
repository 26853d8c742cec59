package internal

import (
	"pairchat/domain"
	"testing"
	"time"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	req := require.New(t)
	var config Config

	err := env.Unmarshal(env.EnvSet{
		"BADGER_FILEPATH": "/tmp/pairchat",
		"JWT_SECRET":      "secret",
	}, &config)

	req.NoError(err)
	req.Equal(8080, config.Port)
	req.Equal(50, config.HistoryLimit)
	req.Equal(1000, config.MaxContentLength)
	req.Equal(200*time.Millisecond, config.RestartInterval)
	policy, err := config.Policy()
	req.NoError(err)
	req.Equal(domain.EditBySender, policy)
}

func TestConfig_Policy_Rejects_Unknown_Value(t *testing.T) {
	req := require.New(t)
	_, err := Config{EditPolicy: "anyone"}.Policy()
	req.Error(err)

	policy, err := Config{EditPolicy: "participants"}.Policy()
	req.NoError(err)
	req.Equal(domain.EditByParticipants, policy)
}

func TestCharacterRune(t *testing.T) {
	req := require.New(t)
	r, err := CharacterRune("#")
	req.NoError(err)
	req.Equal('#', r)

	_, err = CharacterRune("**")
	req.Error(err)
}
