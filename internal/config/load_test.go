package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_HappyPath(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	tempConfigsSubDir := filepath.Join(tempDir, "configs")
	err = os.Mkdir(tempConfigsSubDir, 0755)
	require.NoError(t, err)

	testAppName := "SagaTest"
	testPort := 9090
	testLogLevel := "debug"
	testKafkaBrokers := "kafka1:9092,kafka2:9092"
	testDebitedTopic := "custom-debitadas"

	envContent := fmt.Sprintf(
		"APP_NAME=%s\nSERVER_PORT=%d\nLOG_LEVEL=%s\nKAFKA_BROKERS=%s\nTOPIC_BALANCE_DEBITED=%s\n",
		testAppName, testPort, testLogLevel, testKafkaBrokers, testDebitedTopic,
	)
	envFilePath := filepath.Join(tempConfigsSubDir, "test_happy.env")
	err = os.WriteFile(envFilePath, []byte(envContent), 0644)
	require.NoError(t, err)

	originalWD, err := os.Getwd()
	require.NoError(t, err)
	defer func() {
		_ = os.Chdir(originalWD)
	}()

	err = os.Chdir(tempDir)
	require.NoError(t, err)

	cfg, err := LoadConfig("test_happy")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, testAppName, cfg.Application.Name)
	assert.Equal(t, testPort, cfg.Server.Port)
	assert.Equal(t, testLogLevel, cfg.Logging.Level)
	assert.Equal(t, testKafkaBrokers, cfg.Kafka.Brokers)
	assert.Equal(t, testDebitedTopic, cfg.Topics.BalanceDebited)

	assert.Equal(t, "development", cfg.Application.Env)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "sara-bank-transferencias-iniciadas", cfg.Topics.TransferInitiated)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoDB.URI)
	assert.Equal(t, 10, cfg.WorkerPool.Size)

	assert.Equal(t, 5*time.Second, cfg.Outbox.PollingInterval)
	assert.Equal(t, 5, cfg.Outbox.MaxRetryAttempts)
	assert.Equal(t, 3, cfg.Outbox.PublishRetries)
	assert.Equal(t, 2*time.Second, cfg.Outbox.RetryBaseDelay)

	cfgWithName, err := LoadConfigWithName("configs/test_happy")
	require.NoError(t, err)
	require.NotNil(t, cfgWithName)
	assert.Equal(t, testAppName, cfgWithName.Application.Name)
}

func TestConfig_Validate(t *testing.T) {
	newDefaultConfig := func() *Config {
		v := viper.New()
		setDefaults(v)
		return fromViper(v)
	}

	t.Run("DefaultsAreValid", func(t *testing.T) {
		err := newDefaultConfig().validate()
		assert.NoError(t, err, "Default config should be valid")
	})

	t.Run("MissingTopicIsRejected", func(t *testing.T) {
		cfg := newDefaultConfig()
		cfg.Topics.CreditFailed = ""

		err := cfg.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "topic for event type FalhaNoCredito is required")
	})

	t.Run("CollectsAllErrors", func(t *testing.T) {
		cfg := newDefaultConfig()
		cfg.Outbox.PublishRetries = 0
		cfg.Saga.StallThreshold = 0

		err := cfg.validate()
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "OUTBOX_PUBLISH_RETRIES"))
		assert.True(t, strings.Contains(err.Error(), "SAGA_STALL_THRESHOLD"))
	})
}

func TestTopicsConfig_ByEventType(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	topics := fromViper(v).Topics.ByEventType()

	assert.Len(t, topics, 7)
	assert.Equal(t, "sara-bank-usuarios", topics["UsuarioCadastrado"])
	assert.Equal(t, "sara-bank-movimentacoes", topics["NovaMovimentacao"])
	assert.Equal(t, "sara-bank-transferencias-compensar", topics["FalhaNoCredito"])
	assert.Equal(t, "sara-bank-transferencias-concluidas", topics["TransferenciaConcluida"])
}
