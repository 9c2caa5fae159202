// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config 聚合了一个服务运行所需的全部配置。
// 优先级: 环境变量 > CONFIG_FILE 指向的 YAML 文件 > 默认值。
type Config struct {
	App struct {
		// SessionCookie 是购物车会话标识所在的 Cookie 名
		SessionCookie string `yaml:"session_cookie"`
		// RequirePayment 控制提交订单时是否要求支付凭据并发起扣款
		RequirePayment bool `yaml:"require_payment"`
	} `yaml:"app"`

	Infra struct {
		MysqlDSN          string `yaml:"mysql_dsn"`
		RedisAddrs        string `yaml:"redis_addrs"`
		KafkaBrokers      string `yaml:"kafka_brokers"`
		OrderEventsTopic  string `yaml:"order_events_topic"`
		PaymentGatewayURL string `yaml:"payment_gateway_url"`
		ZookeeperAddrs    string `yaml:"zookeeper_addrs"`

		Jaeger struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`

		Nacos struct {
			Addrs     string `yaml:"addrs"`
			Namespace string `yaml:"namespace"`
			Group     string `yaml:"group"`
		} `yaml:"nacos"`
	} `yaml:"infra"`
}

var (
	currentConfig Config
	configOnce    sync.Once
)

// Init 加载配置。必须在 StartService 或任何 GetCurrentConfig 调用之前执行。
func Init() error {
	var err error
	configOnce.Do(func() {
		currentConfig = defaultConfig()
		if path := os.Getenv("CONFIG_FILE"); path != "" {
			var data []byte
			data, err = os.ReadFile(path)
			if err != nil {
				return
			}
			if err = yaml.Unmarshal(data, &currentConfig); err != nil {
				return
			}
		}
		applyEnvOverrides(&currentConfig)
	})
	return err
}

// GetCurrentConfig 返回进程内的当前配置。
func GetCurrentConfig() Config {
	return currentConfig
}

func defaultConfig() Config {
	var c Config
	c.App.SessionCookie = "basket_session"
	c.App.RequirePayment = true
	c.Infra.MysqlDSN = "root:root@tcp(localhost:3306)/storefront?charset=utf8mb4&parseTime=True&loc=Local"
	c.Infra.RedisAddrs = "localhost:6379"
	c.Infra.KafkaBrokers = "localhost:9092"
	c.Infra.OrderEventsTopic = "order-events"
	c.Infra.PaymentGatewayURL = "http://localhost:9099"
	c.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	return c
}

func applyEnvOverrides(c *Config) {
	c.Infra.MysqlDSN = getEnv("MYSQL_DSN", c.Infra.MysqlDSN)
	c.Infra.RedisAddrs = getEnv("REDIS_ADDRS", c.Infra.RedisAddrs)
	c.Infra.KafkaBrokers = getEnv("KAFKA_BROKERS", c.Infra.KafkaBrokers)
	c.Infra.OrderEventsTopic = getEnv("ORDER_EVENTS_TOPIC", c.Infra.OrderEventsTopic)
	c.Infra.PaymentGatewayURL = getEnv("PAYMENT_GATEWAY_URL", c.Infra.PaymentGatewayURL)
	c.Infra.ZookeeperAddrs = getEnv("ZOOKEEPER_ADDRS", c.Infra.ZookeeperAddrs)
	c.Infra.Jaeger.Endpoint = getEnv("JAEGER_ENDPOINT", c.Infra.Jaeger.Endpoint)
	c.Infra.Nacos.Addrs = getEnv("NACOS_SERVER_ADDRS", c.Infra.Nacos.Addrs)
	c.Infra.Nacos.Namespace = getEnv("NACOS_NAMESPACE", c.Infra.Nacos.Namespace)
	c.Infra.Nacos.Group = getEnv("NACOS_GROUP", c.Infra.Nacos.Group)
	if v, ok := os.LookupEnv("REQUIRE_PAYMENT"); ok {
		c.App.RequirePayment = v == "true" || v == "1"
	}
}

// getEnv 是一个内部辅助函数，从环境变量中读取配置。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
