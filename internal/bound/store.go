// Package bound provides the player-binding store backed by SQLite.
package bound

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/xieyuen/PF-GUGUBot/internal/config"
)

// ErrNotFound 查询的绑定不存在
var ErrNotFound = errors.New("binding not found")

// Player 一条玩家绑定记录
type Player struct {
	Name      string
	SenderID  string
	Platform  string
	CreatedAt time.Time
}

// Store 玩家绑定存储
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS player_bindings (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    player_name TEXT NOT NULL,
    sender_id   TEXT NOT NULL,
    platform    TEXT NOT NULL,
    created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (sender_id, platform)
);
`

// Open 打开绑定数据库
func Open(path string) (*Store, error) {
	expandedPath, err := config.ExpandPath(path)
	if err != nil {
		return nil, fmt.Errorf("expand path: %w", err)
	}

	dir := filepath.Dir(expandedPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	db, err := sql.Open("sqlite", expandedPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close 关闭数据库
func (s *Store) Close() error {
	return s.db.Close()
}

// Bind 建立或更新绑定
func (s *Store) Bind(senderID, platform, playerName string) error {
	_, err := s.db.Exec(
		`INSERT INTO player_bindings (player_name, sender_id, platform) VALUES (?, ?, ?)
		 ON CONFLICT (sender_id, platform) DO UPDATE SET player_name = excluded.player_name`,
		playerName, senderID, platform,
	)
	return err
}

// Unbind 解除绑定
func (s *Store) Unbind(senderID, platform string) error {
	result, err := s.db.Exec(
		"DELETE FROM player_bindings WHERE sender_id = ? AND platform = ?",
		senderID, platform,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetPlayer 按发送者与平台查询绑定
func (s *Store) GetPlayer(senderID, platform string) (*Player, error) {
	var p Player
	err := s.db.QueryRow(
		"SELECT player_name, sender_id, platform, created_at FROM player_bindings WHERE sender_id = ? AND platform = ?",
		senderID, platform,
	).Scan(&p.Name, &p.SenderID, &p.Platform, &p.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// HasBinding 判断发送者在指定平台是否已绑定
func (s *Store) HasBinding(senderID, platform string) (bool, error) {
	_, err := s.GetPlayer(senderID, platform)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List 返回全部绑定记录
func (s *Store) List() ([]Player, error) {
	rows, err := s.db.Query(
		"SELECT player_name, sender_id, platform, created_at FROM player_bindings ORDER BY created_at",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Player
	for rows.Next() {
		var p Player
		if err := rows.Scan(&p.Name, &p.SenderID, &p.Platform, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
