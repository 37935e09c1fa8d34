package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/sanosuguru/go-arena-booking/internal/domain/transaction"
)

var ErrForeignTx = errors.New("このストアのトランザクションではありません")

// Tx はメモリストアのトランザクション。
// 書き込みトランザクションは1本ずつ実行され、ロールバック時は記録した取り消し処理を逆順に適用する
type Tx struct {
	mgr  *TxManager
	undo []func()
	done bool
}

// Commit はトランザクションを確定する
func (t *Tx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	t.undo = nil
	<-t.mgr.writer
	return nil
}

// Rollback は変更を取り消す。コミット後の呼び出しは何もしない
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.mgr.data.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.mgr.data.Unlock()
	t.undo = nil
	<-t.mgr.writer
	return nil
}

func (t *Tx) record(fn func()) {
	t.undo = append(t.undo, fn)
}

// TxManager は書き込みトランザクションを直列化する
type TxManager struct {
	// 容量1のセマフォ。待機中もコンテキストのキャンセルを受け付ける
	writer chan struct{}
	data   sync.RWMutex
}

// NewTxManager は新しい TxManager を作成する
func NewTxManager() *TxManager {
	return &TxManager{writer: make(chan struct{}, 1)}
}

// Begin は他の書き込みトランザクションの終了を待って開始する。
// 待機中に ctx が終了した場合は ctx.Err() を返す
func (m *TxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case m.writer <- struct{}{}:
		return &Tx{mgr: m}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *TxManager) unwrap(tx transaction.Tx) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok || t.mgr != m || t.done {
		return nil, ErrForeignTx
	}
	return t, nil
}
