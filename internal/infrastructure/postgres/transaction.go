package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-arena-booking/internal/domain/transaction"
)

// ErrTxRequired は書き込み系の操作に PostgreSQL のトランザクションが渡されなかったことを示す
var ErrTxRequired = errors.New("PostgreSQLのトランザクションが必要です")

// TxWrapper は sqlx.Tx を transaction.Tx として扱う
type TxWrapper struct {
	*sqlx.Tx
}

func (t *TxWrapper) Commit() error {
	return t.Tx.Commit()
}

// Rollback はコミット済みのトランザクションに対しては何もしない
func (t *TxWrapper) Rollback() error {
	if err := t.Tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// TxManager は READ COMMITTED のトランザクションを開始する。
// 同じ日の書き込みはアドバイザリロックで直列化するため、これより強い分離レベルは使わない
type TxManager struct {
	db *sqlx.DB
}

func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

func (m *TxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	tx, err := m.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	return &TxWrapper{Tx: tx}, nil
}

// requireTx は tx から sqlx.Tx を取り出す。op はエラーメッセージに使う
func requireTx(tx transaction.Tx, op string) (*sqlx.Tx, error) {
	if wrapper, ok := tx.(*TxWrapper); ok && wrapper != nil {
		return wrapper.Tx, nil
	}
	return nil, fmt.Errorf("%s: %w", op, ErrTxRequired)
}

// queryer は tx が nil なら db を、そうでなければ tx を返す
func queryer(db *sqlx.DB, tx transaction.Tx, op string) (sqlx.QueryerContext, error) {
	if tx == nil {
		return db, nil
	}
	return requireTx(tx, op)
}
