// Package feature 提供商品属性（内容特征）的读取与 token 化：
// content 相似度把商品表示为属性 token 集合（如 "category:shirt"），
// 对零交互的冷启动商品也能算出相似度。
//
// 两种来源：
//   - StoreAttributeSource：属性存在 KV 存储里（开发/自管目录）
//   - FeastAttributeSource：属性从 Feast Feature Store 在线读取（生产）
package feature

import (
	"fmt"
	"strings"
)

// ProductAttributes 是商品的内容属性。
// 字段为空则不参与 token 化。
type ProductAttributes struct {
	Category string            `json:"category,omitempty"`
	Brand    string            `json:"brand,omitempty"`
	Color    string            `json:"color,omitempty"`
	Size     string            `json:"size,omitempty"`
	Tags     []string          `json:"tags,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// Tokens 把属性转成 "维度:取值" 形式的 token 集合。
// 统一小写，保证两侧写入/比较时口径一致。
func (a *ProductAttributes) Tokens() []string {
	if a == nil {
		return nil
	}

	var tokens []string
	add := func(dim, val string) {
		val = strings.TrimSpace(val)
		if val == "" {
			return
		}
		tokens = append(tokens, Token(dim, val))
	}

	add("category", a.Category)
	add("brand", a.Brand)
	add("color", a.Color)
	add("size", a.Size)
	for _, tag := range a.Tags {
		add("tag", tag)
	}
	for dim, val := range a.Extra {
		add(dim, val)
	}
	return tokens
}

// Token 生成单个属性 token。
func Token(dim, val string) string {
	return strings.ToLower(fmt.Sprintf("%s:%s", strings.TrimSpace(dim), strings.TrimSpace(val)))
}
