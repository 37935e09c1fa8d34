package auth

import (
	"context"

	"github.com/sanosuguru/go-arena-booking/internal/domain/admin"
)

// DirectoryChain は複数の管理者ディレクトリを順に照会し、どれかが認めれば管理者とする
type DirectoryChain struct {
	dirs []admin.Directory
}

func NewDirectoryChain(dirs ...admin.Directory) *DirectoryChain {
	chain := &DirectoryChain{}
	for _, d := range dirs {
		if d != nil {
			chain.dirs = append(chain.dirs, d)
		}
	}
	return chain
}

func (c *DirectoryChain) IsAdmin(ctx context.Context, email string) (bool, error) {
	for _, d := range c.dirs {
		ok, err := d.IsAdmin(ctx, email)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
