package handler

import (
	"io"
	"net/http"

	"kidphoto/internal/service"
	"kidphoto/pkg/logger"
	"kidphoto/pkg/payment"

	"github.com/gin-gonic/gin"
)

// PaymentHandler 支付回调处理器
type PaymentHandler struct {
	payments *service.PaymentService
	logger   *logger.Logger
}

// NewPaymentHandler 创建支付回调处理器
func NewPaymentHandler(payments *service.PaymentService, logger *logger.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, logger: logger}
}

// Notify 支付结果回调。应答格式遵循支付通道约定：
// 返回 SUCCESS 表示已处理，FAIL 会触发通道重试。
func (h *PaymentHandler) Notify(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error("读取回调请求体失败", "error", err)
		notifyAck(c, http.StatusBadRequest, "读取请求体失败")
		return
	}

	err = h.payments.HandleNotify(c.Request.Context(), body,
		c.GetHeader(payment.HeaderTimestamp),
		c.GetHeader(payment.HeaderNonce),
		c.GetHeader(payment.HeaderSignature),
	)
	switch service.KindOf(err) {
	case "":
		if err != nil {
			h.logger.Error("处理支付回调失败", "error", err)
			notifyAck(c, http.StatusInternalServerError, "处理失败")
			return
		}
		notifyAck(c, http.StatusOK, "")
	case service.KindInvalidState:
		// 订单已取消，已记录人工退款日志，不再让通道重试
		notifyAck(c, http.StatusOK, "")
	case service.KindNotFound:
		notifyAck(c, http.StatusNotFound, err.Error())
	default:
		notifyAck(c, http.StatusBadRequest, err.Error())
	}
}

func notifyAck(c *gin.Context, status int, message string) {
	code := "SUCCESS"
	if status != http.StatusOK {
		code = "FAIL"
	}
	c.JSON(status, gin.H{"code": code, "message": message})
}
