package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggingBeforeInitDoesNotPanic(t *testing.T) {
	// Init 之前所有级别都必须安全可调用
	assert.NotPanics(t, func() {
		Info("info before init")
		Infof("infof before init: %d", 1)
		Infow("infow before init", "k", "v")
		Warnf("warnf before init: %v", errors.New("warn"))
		Error("error before init", errors.New("boom"))
		Errorf("errorf before init: %v", errors.New("boom"))
	})
}

func TestInitReconfiguresLogger(t *testing.T) {
	Init("debug", "json", "")
	assert.NotPanics(t, func() {
		Infof("after init: %s", "ok")
	})
}
