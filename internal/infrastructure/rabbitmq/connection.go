package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"dizzycode.xyz/multi-strategy-server/pkg/logger"
)

// Channel 發布訂單所需的 amqp.Channel 子集
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// amqpChannel 連接管理需要的 *amqp.Channel 能力
type amqpChannel interface {
	Channel
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	Close() error
}

// amqpConnection 連接管理需要的 *amqp.Connection 能力
type amqpConnection interface {
	Channel() (amqpChannel, error)
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	IsClosed() bool
	Close() error
}

type dialer func(rawURL string) (amqpConnection, error)

// dialedConnection 讓 *amqp.Connection 返回接口形式的通道
type dialedConnection struct {
	*amqp.Connection
}

func (d dialedConnection) Channel() (amqpChannel, error) {
	ch, err := d.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func dialAMQP(rawURL string) (amqpConnection, error) {
	conn, err := amqp.Dial(rawURL)
	if err != nil {
		return nil, err
	}
	return dialedConnection{conn}, nil
}

// Config holds RabbitMQ connection configuration
type Config struct {
	URL string
}

// Connection manages RabbitMQ connection and channel
type Connection struct {
	config  Config
	logger  logger.Logger
	dial    dialer
	conn    amqpConnection
	channel amqpChannel
	mu      sync.RWMutex
	closed  bool
}

// NewConnection creates a new RabbitMQ connection instance
func NewConnection(config Config, log logger.Logger) *Connection {
	return newConnection(config, log, dialAMQP)
}

func newConnection(config Config, log logger.Logger, dial dialer) *Connection {
	return &Connection{
		config: config,
		logger: log,
		dial:   dial,
	}
}

// Connect 建立連接與通道
//
// 只有通道斷開而連接仍在時，在原連接上重開通道；
// 連接已失效時先關閉舊連接再重新撥號。
func (c *Connection) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && c.channel != nil {
		return nil
	}
	c.closed = false

	if c.conn != nil && !c.conn.IsClosed() {
		err := c.openChannel()
		if err == nil {
			c.logger.Info("RabbitMQ channel reopened")
			return nil
		}
		c.logger.Warn("Failed to reopen RabbitMQ channel, redialing", map[string]any{"error": err})
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}

	c.logger.Info("Connecting to RabbitMQ", map[string]any{
		"url": maskURL(c.config.URL),
	})

	conn, err := c.dial(c.config.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	c.conn = conn
	c.watchConnection(conn)

	if err := c.openChannel(); err != nil {
		_ = conn.Close()
		c.conn = nil
		return err
	}

	c.logger.Info("RabbitMQ connected successfully")
	return nil
}

// openChannel 在當前連接上開通道，調用方持有寫鎖
func (c *Connection) openChannel() error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to create channel: %w", err)
	}
	c.channel = ch
	c.watchChannel(ch)
	return nil
}

// watchConnection 連接關閉後清空連接與通道；只清理仍是當前的那個連接
func (c *Connection) watchConnection(conn amqpConnection) {
	notify := conn.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		c.logClose("connection", <-notify)

		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
			c.channel = nil
		}
		c.mu.Unlock()
	}()
}

// watchChannel 通道關閉後清空通道，連接保留給下一次 Connect 重用
func (c *Connection) watchChannel(ch amqpChannel) {
	notify := ch.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		c.logClose("channel", <-notify)

		c.mu.Lock()
		if c.channel == ch {
			c.channel = nil
		}
		c.mu.Unlock()
	}()
}

func (c *Connection) logClose(what string, closeErr *amqp.Error) {
	if closeErr != nil {
		c.logger.Error("RabbitMQ "+what+" error", map[string]any{
			"error": closeErr.Error(),
		})
		return
	}
	c.logger.Warn("RabbitMQ " + what + " closed")
}

// Channel returns the active channel, reconnecting if it was lost
func (c *Connection) Channel() (Channel, error) {
	c.mu.RLock()
	ch, closed := c.channel, c.closed
	c.mu.RUnlock()

	if closed {
		return nil, errors.New("rabbitmq connection closed")
	}
	if ch != nil {
		return ch, nil
	}

	if err := c.Connect(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.channel == nil {
		return nil, errors.New("channel not initialized")
	}
	return c.channel, nil
}

// IsConnected checks if the connection and channel are active
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && c.channel != nil && !c.closed
}

// Close closes the channel and connection
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, err)
		}
		c.channel = nil
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, err)
		}
		c.conn = nil
	}
	c.closed = true

	c.logger.Info("RabbitMQ connection closed")
	return errors.Join(errs...)
}

// maskURL masks the password in the URL for logging
func maskURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url"
	}

	if parsed.User != nil {
		if _, hasPassword := parsed.User.Password(); hasPassword {
			parsed.User = url.UserPassword(parsed.User.Username(), "***")
		}
	}

	return parsed.String()
}
