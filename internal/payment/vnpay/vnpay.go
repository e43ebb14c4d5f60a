// Package vnpay はVNPayのホスト型決済URLの組み立てと、戻りパラメータの署名検証を行う。
package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	version      = "2.1.0"
	command      = "pay"
	currencyCode = "VND"
	orderType    = "other"
	locale       = "vn"
	dateLayout   = "20060102150405"

	paramSecureHash     = "vnp_SecureHash"
	paramSecureHashType = "vnp_SecureHashType"

	// 成功コード
	codeSuccess = "00"
)

var (
	ErrInvalidSignature = errors.New("vnpay: invalid signature")
	ErrMissingTxnRef    = errors.New("vnpay: missing vnp_TxnRef")
	ErrInvalidAmount    = errors.New("vnpay: invalid amount")
)

// VNPayは現地時間(GMT+7)で日時を扱う
var vnLocation = time.FixedZone("GMT+7", 7*60*60)

type Config struct {
	TmnCode    string
	HashSecret string
	PayURL     string
}

type Client struct {
	cfg Config
	now func() time.Time
}

func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg, now: time.Now}
}

// PaymentRequest は決済画面へ渡す内容
type PaymentRequest struct {
	TxnRef    string
	Amount    decimal.Decimal
	OrderInfo string
	ReturnURL string
	ClientIP  string
}

// CallbackResult は戻りパラメータを検証した結果
type CallbackResult struct {
	TxnRef            string
	Amount            decimal.Decimal
	ResponseCode      string
	TransactionStatus string
	TransactionNo     string
	BankCode          string
}

// 応答コードと取引ステータスが両方00なら成功
func (r CallbackResult) Success() bool {
	if r.ResponseCode != codeSuccess {
		return false
	}
	return r.TransactionStatus == "" || r.TransactionStatus == codeSuccess
}

// BuildPaymentURL は署名済みの決済URLを返す。金額は100倍して送る
func (c *Client) BuildPaymentURL(req PaymentRequest) (string, error) {
	if strings.TrimSpace(req.TxnRef) == "" {
		return "", ErrMissingTxnRef
	}
	if !req.Amount.IsPositive() {
		return "", ErrInvalidAmount
	}

	ip := req.ClientIP
	if ip == "" {
		ip = "127.0.0.1"
	}
	info := req.OrderInfo
	if info == "" {
		info = "Thanh toan " + req.TxnRef
	}

	now := c.now().In(vnLocation)
	params := url.Values{}
	params.Set("vnp_Version", version)
	params.Set("vnp_Command", command)
	params.Set("vnp_TmnCode", c.cfg.TmnCode)
	params.Set("vnp_Amount", req.Amount.Mul(decimal.NewFromInt(100)).Truncate(0).String())
	params.Set("vnp_CurrCode", currencyCode)
	params.Set("vnp_TxnRef", req.TxnRef)
	params.Set("vnp_OrderInfo", info)
	params.Set("vnp_OrderType", orderType)
	params.Set("vnp_Locale", locale)
	params.Set("vnp_ReturnUrl", req.ReturnURL)
	params.Set("vnp_IpAddr", ip)
	params.Set("vnp_CreateDate", now.Format(dateLayout))
	params.Set("vnp_ExpireDate", now.Add(15*time.Minute).Format(dateLayout))

	// Encodeはキー順に並べる
	signData := params.Encode()
	return c.cfg.PayURL + "?" + signData + "&" + paramSecureHash + "=" + c.sign(signData), nil
}

// VerifyCallback は署名を検証し、結果を取り出す
func (c *Client) VerifyCallback(query url.Values) (CallbackResult, error) {
	given := query.Get(paramSecureHash)
	if given == "" {
		return CallbackResult{}, ErrInvalidSignature
	}

	params := url.Values{}
	for k, vs := range query {
		if k == paramSecureHash || k == paramSecureHashType {
			continue
		}
		if !strings.HasPrefix(k, "vnp_") || len(vs) == 0 || vs[0] == "" {
			continue
		}
		params.Set(k, vs[0])
	}

	expected := c.sign(params.Encode())
	if !hmac.Equal([]byte(strings.ToLower(given)), []byte(expected)) {
		return CallbackResult{}, ErrInvalidSignature
	}

	res := CallbackResult{
		TxnRef:            params.Get("vnp_TxnRef"),
		ResponseCode:      params.Get("vnp_ResponseCode"),
		TransactionStatus: params.Get("vnp_TransactionStatus"),
		TransactionNo:     params.Get("vnp_TransactionNo"),
		BankCode:          params.Get("vnp_BankCode"),
	}
	if res.TxnRef == "" {
		return CallbackResult{}, ErrMissingTxnRef
	}
	if raw := params.Get("vnp_Amount"); raw != "" {
		amt, err := decimal.NewFromString(raw)
		if err != nil {
			return CallbackResult{}, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
		}
		res.Amount = amt.Div(decimal.NewFromInt(100))
	}
	return res, nil
}

func (c *Client) sign(data string) string {
	mac := hmac.New(sha512.New, []byte(c.cfg.HashSecret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
