// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Comment is a row of the comments table. EventID is required.
type Comment struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Content   string    `json:"content"`
	EventID   int64     `json:"event_id"`
}

// CommentInput is the insert payload for a comment.
type CommentInput struct {
	Content string `json:"content"`
	EventID int64  `json:"event_id"`
}
