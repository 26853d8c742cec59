package internal

import (
	"fmt"
	"pairchat/domain"
	"time"
)

type Config struct {
	Host     string `env:"HOST,default=localhost"`
	Port     int    `env:"PORT,default=8080"`
	GrpcPort int    `env:"GRPC_PORT,default=9090"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`

	JwtSecret   string        `env:"JWT_SECRET,required=true"`
	JwtIssuer   string        `env:"JWT_ISSUER,default=pairchat"`
	AuthTimeout time.Duration `env:"AUTH_TIMEOUT,default=5s"`

	HistoryLimit     int    `env:"HISTORY_LIMIT,default=50"`
	MaxContentLength int    `env:"MAX_CONTENT_LENGTH,default=1000"`
	EditPolicy       string `env:"EDIT_POLICY,default=sender"`

	NumberOfLanes        int           `env:"NUMBER_OF_LANES,default=16"`
	LaneBufferSize       int           `env:"LANE_BUFFER_SIZE,default=256"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	DeliveryTimeout      time.Duration `env:"DELIVERY_TIMEOUT,default=2s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`

	CensoredWordsPath string `env:"CENSORED_WORDS_PATH"`
	CharReplacement   string `env:"CHARACTER_REPLACEMENT,default=*"`
}

// Policy validates EDIT_POLICY.
func (c Config) Policy() (domain.EditPolicy, error) {
	switch policy := domain.EditPolicy(c.EditPolicy); policy {
	case domain.EditBySender, domain.EditByParticipants:
		return policy, nil
	default:
		return "", fmt.Errorf("EDIT_POLICY must be %q or %q, got %q",
			domain.EditBySender, domain.EditByParticipants, c.EditPolicy)
	}
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
