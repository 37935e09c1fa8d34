package booking

import (
	"regexp"
	"strings"
)

const (
	MaxNameLength  = 100
	MaxEmailLength = 150
	MaxPhoneLength = 20
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[0-9]{10,15}$`)
	phoneStrip   = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
	htmlEscaper  = strings.NewReplacer(
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#x27;",
		"/", "&#x2F;",
	)
	htmlUnescaper = strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#x27;", "'",
		"&#x2F;", "/",
	)
)

// Contact は予約者の連絡先
type Contact struct {
	Name  string
	Email string
	Phone string
}

// Sanitize はHTMLとして危険な文字をエスケープし前後の空白を除去する
func Sanitize(s string) string {
	return strings.TrimSpace(htmlEscaper.Replace(s))
}

// Unsanitize は Sanitize のエスケープを元に戻す
// テンプレートやメールヘッダーなど自前でエスケープする出力先に渡す前に使う
func Unsanitize(s string) string {
	return htmlUnescaper.Replace(s)
}

// NewContact は入力をサニタイズして検証済みの連絡先を返す
func NewContact(name, email, phone string) (Contact, error) {
	c := Contact{Name: Sanitize(name), Email: Sanitize(email), Phone: Sanitize(phone)}
	if err := c.Validate(); err != nil {
		return Contact{}, err
	}
	return c, nil
}

// Validate は必須・長さ・形式を検証する
func (c Contact) Validate() error {
	switch {
	case c.Name == "":
		return &ValidationError{Field: "customer_name", Reason: "氏名は必須です"}
	case c.Email == "":
		return &ValidationError{Field: "email", Reason: "メールアドレスは必須です"}
	case c.Phone == "":
		return &ValidationError{Field: "phone", Reason: "電話番号は必須です"}
	}
	if len([]rune(c.Name)) > MaxNameLength {
		return &ValidationError{Field: "customer_name", Reason: "氏名は100文字以内で入力してください"}
	}
	if len([]rune(c.Email)) > MaxEmailLength {
		return &ValidationError{Field: "email", Reason: "メールアドレスは150文字以内で入力してください"}
	}
	if len([]rune(c.Phone)) > MaxPhoneLength {
		return &ValidationError{Field: "phone", Reason: "電話番号は20文字以内で入力してください"}
	}
	if !emailPattern.MatchString(c.Email) {
		return &ValidationError{Field: "email", Reason: "メールアドレスの形式が不正です"}
	}
	if !phonePattern.MatchString(phoneStrip.Replace(c.Phone)) {
		return &ValidationError{Field: "phone", Reason: "電話番号の形式が不正です"}
	}
	return nil
}
