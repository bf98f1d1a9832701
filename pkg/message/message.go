// Package message defines the wire-agnostic message segment model.
package message

import "strings"

// Segment 消息段，type 决定 data 中的字段
type Segment struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Message 有序消息段序列，顺序有语义（命令只看第一段）
type Message []Segment

// Text 构造文本段
func Text(text string) Segment {
	return Segment{Type: "text", Data: map[string]any{"text": text}}
}

// At 构造 @ 提及段
func At(id string) Segment {
	return Segment{Type: "at", Data: map[string]any{"qq": id}}
}

// Image 构造图片段
func Image(url string) Segment {
	return Segment{Type: "image", Data: map[string]any{"url": url}}
}

// Text 返回段的文本内容，非文本段返回空串
func (s Segment) Text() string {
	if s.Type != "text" {
		return ""
	}
	text, _ := s.Data["text"].(string)
	return text
}

// IsText 判断是否为文本段
func (s Segment) IsText() bool {
	return s.Type == "text"
}

// FirstText 返回首段文本内容，消息为空或首段非文本时返回空串和 false
func (m Message) FirstText() (string, bool) {
	if len(m) == 0 || !m[0].IsText() {
		return "", false
	}
	return m[0].Text(), true
}

// Clone 深拷贝消息段序列，避免入站与出站消息间的别名共享
func (m Message) Clone() Message {
	if m == nil {
		return nil
	}
	result := make(Message, len(m))
	for i, seg := range m {
		data := make(map[string]any, len(seg.Data))
		for k, v := range seg.Data {
			data[k] = v
		}
		result[i] = Segment{Type: seg.Type, Data: data}
	}
	return result
}

// PlainText 拼接所有文本段内容，用于日志预览
func (m Message) PlainText() string {
	var b strings.Builder
	for _, seg := range m {
		b.WriteString(seg.Text())
	}
	return b.String()
}

// StripPrefix 从首个文本段移除命令前缀，返回新的消息段序列。
//
// 原序列不会被修改。剩余文本为空时整段丢弃；若因此序列为空，
// 则替换为单个空格文本段，保证转发时消息永不为空。
func (m Message) StripPrefix(prefix string) Message {
	result := m.Clone()
	if len(result) == 0 || !result[0].IsText() {
		return result
	}

	remaining := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(result[0].Text()), prefix))
	if remaining != "" {
		result[0].Data["text"] = remaining
	} else {
		result = result[1:]
	}

	if len(result) == 0 {
		result = Message{Text(" ")}
	}
	return result
}
