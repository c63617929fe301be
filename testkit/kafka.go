package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	kafkacontainer "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/ceyewan/flake/connector"
)

// NewKafkaContainerConfig 启动 Kafka (KRaft) 容器并返回连接配置
func NewKafkaContainerConfig(t *testing.T) *connector.KafkaConfig {
	t.Helper()
	RequireIntegration(t)
	ctx := context.Background()

	container, err := kafkacontainer.Run(ctx, "confluentinc/confluent-local:7.5.0",
		kafkacontainer.WithClusterID("flake-test-cluster"),
	)
	skipOnContainerError(t, "kafka", err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)

	return &connector.KafkaConfig{
		Name:           "testcontainer-kafka",
		Seed:           brokers,
		ConnectTimeout: 10 * time.Second,
		RequestTimeout: 5 * time.Second,
	}
}

// NewKafkaConnector 启动 Kafka 容器并返回已连接的连接器
func NewKafkaConnector(t *testing.T) connector.KafkaConnector {
	t.Helper()
	conn, err := connector.NewKafka(NewKafkaContainerConfig(t), connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create kafka connector")
	require.NoError(t, conn.Connect(context.Background()), "failed to connect to kafka")
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
