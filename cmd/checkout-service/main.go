// cmd/checkout-service/main.go
package main

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"storefront/internal/pkg/bootstrap"
	"storefront/internal/pkg/httpclient"
	"storefront/internal/pkg/mq"
	pkgredis "storefront/internal/pkg/redis"
	"storefront/internal/service/checkout/application"
	"storefront/internal/service/checkout/domain/port"
	"storefront/internal/service/checkout/infrastructure"
	"storefront/internal/service/checkout/infrastructure/adapter"
	"storefront/internal/service/checkout/interfaces"
	"storefront/internal/service/checkout/validation"
	"storefront/internal/zookeeper"
)

const (
	serviceName = "checkout-service"
	servicePort = 8084
)

// main 函数是应用的"组装根" (Composition Root)
// 它的核心职责是：创建并组装所有依赖项，然后启动应用。
func main() {
	if err := bootstrap.Init(); err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	cfg := bootstrap.GetCurrentConfig()

	// 1. MySQL + GORM
	db, err := gorm.Open(mysql.Open(cfg.Infra.MysqlDSN), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mysql")
	}
	if err := infrastructure.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate schema")
	}

	// 2. Redis（购物车存储）
	redisClient, err := pkgredis.NewClient(cfg.Infra.RedisAddrs)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize redis client")
	}
	defer redisClient.Close()

	// 3. Kafka（订单事件发布）
	kafkaWriter := mq.NewKafkaWriter(strings.Split(cfg.Infra.KafkaBrokers, ","), cfg.Infra.OrderEventsTopic)
	defer kafkaWriter.Close()

	// 4. ZooKeeper（可选的会话级提交锁，未配置地址时不启用）
	var locker port.CheckoutLocker
	if cfg.Infra.ZookeeperAddrs != "" {
		zkConn, err := zookeeper.Connect(cfg.Infra.ZookeeperAddrs, 5*time.Second)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to zookeeper")
		}
		defer zkConn.Close()
		locker = adapter.NewZkCheckoutLocker(zkConn)
	}

	// 5. 结账表单规则在启动期编译，非法规则直接拒绝启动
	orderForm, err := validation.Compile(validation.OrderForm())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to compile order form rules")
	}

	tracer := otel.Tracer(serviceName)

	// 6. 组装仓储、适配器与应用服务
	products := infrastructure.NewGormProductRepository(db)
	checkoutService := application.NewCheckoutService(
		infrastructure.NewRedisBasketStore(redisClient, products),
		infrastructure.NewGormOrderRepository(db),
		infrastructure.NewGormCustomerRepository(db),
		infrastructure.NewGormAddressRepository(db),
		adapter.NewPaymentHTTPAdapter(httpclient.NewClient(tracer), cfg.Infra.PaymentGatewayURL),
		adapter.NewOrderNotifierKafkaAdapter(kafkaWriter),
		locker,
		orderForm,
		tracer,
		cfg.App.RequirePayment,
	)
	handler := interfaces.NewCheckoutHandler(checkoutService, cfg.App.SessionCookie)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
		},
	})
}
