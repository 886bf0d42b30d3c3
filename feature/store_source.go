package feature

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rushteam/shoprec/core"
)

// 存储键：
//   attr:product:{id}  商品属性 JSON
//   attr:products      商品目录（有序集合，score 固定 0，按成员字典序遍历）
const (
	attrKeyPrefix  = "attr:product:"
	attrCatalogKey = "attr:products"
)

// StoreAttributeSource 把商品属性存在 KV 存储中。
// 实现 similarity.AttributeSource，供 content 相似度与 similar_items 兜底使用。
type StoreAttributeSource struct {
	kv core.KeyValueStore
}

func NewStoreAttributeSource(kv core.KeyValueStore) *StoreAttributeSource {
	return &StoreAttributeSource{kv: kv}
}

// PutAttributes 写入（覆盖）商品属性，并把商品登记进目录。
// 商品上架/属性变更时调用。
func (s *StoreAttributeSource) PutAttributes(
	ctx context.Context,
	productID string,
	attrs *ProductAttributes,
) error {
	if productID == "" {
		return core.NewDomainError(core.ModuleFeature, core.ErrorCodeInvalidInput,
			"feature: product id is required")
	}
	if attrs == nil {
		attrs = &ProductAttributes{}
	}

	raw, err := json.Marshal(attrs)
	if err != nil {
		return core.NewDomainError(core.ModuleFeature, core.ErrorCodeInternalError,
			fmt.Sprintf("feature: marshal attributes of %s: %v", productID, err))
	}
	if err := s.kv.Set(ctx, attrKeyPrefix+productID, raw); err != nil {
		return err
	}
	return s.kv.ZAdd(ctx, attrCatalogKey, 0, productID)
}

// GetAttributes 读取商品属性；商品不存在返回 NOT_FOUND。
func (s *StoreAttributeSource) GetAttributes(
	ctx context.Context,
	productID string,
) (*ProductAttributes, error) {
	raw, err := s.kv.Get(ctx, attrKeyPrefix+productID)
	if err != nil {
		return nil, err
	}
	var attrs ProductAttributes
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeInternalError,
			fmt.Sprintf("feature: unmarshal attributes of %s: %v", productID, err))
	}
	return &attrs, nil
}

// ProductTokens 返回商品的属性 token 集合。
func (s *StoreAttributeSource) ProductTokens(
	ctx context.Context,
	productID string,
) ([]string, error) {
	attrs, err := s.GetAttributes(ctx, productID)
	if err != nil {
		return nil, err
	}
	return attrs.Tokens(), nil
}

// AllProducts 返回目录内的全部商品 id（含零交互的冷启动商品）。
func (s *StoreAttributeSource) AllProducts(ctx context.Context) ([]string, error) {
	ids, err := s.kv.ZRangeAsc(ctx, attrCatalogKey, 0, -1)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return ids, nil
}
