package omnipay

import (
	"time"

	"github.com/eilwallet/omnipay/logger"
	"github.com/eilwallet/omnipay/metrics"
)

type Option func(*OmniPay)

func WithLogger(l logger.Logger) Option {
	return func(o *OmniPay) {
		o.log = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(o *OmniPay) {
		o.metrics = r
	}
}

// WithTimeout bounds each planning and verification call.
func WithTimeout(t time.Duration) Option {
	return func(o *OmniPay) {
		o.timeout = t
	}
}
