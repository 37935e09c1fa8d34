package memory

import (
	"context"
	"strings"
)

// AdminDirectory は固定の管理者メールアドレス一覧
type AdminDirectory struct {
	emails map[string]struct{}
}

func NewAdminDirectory(emails ...string) *AdminDirectory {
	d := &AdminDirectory{emails: make(map[string]struct{}, len(emails))}
	for _, e := range emails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			d.emails[e] = struct{}{}
		}
	}
	return d
}

func (d *AdminDirectory) IsAdmin(ctx context.Context, email string) (bool, error) {
	_, ok := d.emails[strings.ToLower(strings.TrimSpace(email))]
	return ok, nil
}
