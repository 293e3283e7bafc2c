package domain

import "errors"

var (
	ErrSendingReplyFailed = errors.New("failed to send reply")
	ErrEmptyPrompt        = errors.New("empty prompt")
	ErrEmptyResult        = errors.New("empty result in api response")
	ErrCommandNotFound    = errors.New("command not found")
	ErrLoggedOut          = errors.New("connection closed, logged out")
	ErrInvalidPhoneNumber = errors.New("phone number does not start with a country code")
	ErrPairingWithMobile  = errors.New("cannot use pairing code with mobile api")
	ErrReconnectLimit     = errors.New("reconnect attempts exhausted")
	ErrSessionClosed      = errors.New("session closed")
)

const (
	DefaultFallbackPrefix = "#"
	DefaultPrefixes       = "°•π÷×¶∆£¢€¥®™✓_=|~!?#$%^&.+,/\\©"
	DefaultFallbackImage  = "https://lh3.googleusercontent.com/proxy/esjjzRYoXlhgNYXqU8Gf_3lu6V-eONTnymkLzdwQ6F6z0MWAqIwIpqgq_lk4caRIZF_0Uqb5U8NWNrJcaeTuCjp7xZlpL48JDx-qzAXSTh00AVVqBoT7MJ0259pik9mnQ1LldFLfHZUGDGY=w1200-h630-p-k-no-nu"
)
