package feature

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	feastsdk "github.com/feast-dev/feast/sdk/go"
	feasttypes "github.com/feast-dev/feast/sdk/go/protos/feast/types"

	"github.com/rushteam/shoprec/core"
)

// ProductLister 提供商品目录的全量 id。
// Feast 在线存储不支持遍历实体，目录由外部提供
// （测试/开发用 StoreAttributeSource，生产可接商品服务）。
type ProductLister interface {
	AllProducts(ctx context.Context) ([]string, error)
}

// FeastAttributeSource 从 Feast Feature Store 在线读取商品属性。
//
// 实现 similarity.AttributeSource。特征引用形如 "product_attrs:category"，
// token 维度取冒号后的特征名，如 "category:shirt"。
type FeastAttributeSource struct {
	client *feastsdk.GrpcClient

	// Project Feast 项目名
	Project string

	// EntityKey 实体键名，默认 "product_id"
	EntityKey string

	// Features 要读取的特征引用列表，如 ["product_attrs:category", "product_attrs:brand"]
	Features []string

	// Catalog 商品目录来源
	Catalog ProductLister
}

func NewFeastAttributeSource(
	host string,
	port int,
	project string,
	features []string,
	catalog ProductLister,
) (*FeastAttributeSource, error) {
	if port == 0 {
		port = 6565
	}
	client, err := feastsdk.NewGrpcClient(host, port)
	if err != nil {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeUnavailable,
			fmt.Sprintf("feature: connect feast %s:%d: %v", host, port, err))
	}
	return &FeastAttributeSource{
		client:    client,
		Project:   project,
		EntityKey: "product_id",
		Features:  features,
		Catalog:   catalog,
	}, nil
}

// ProductTokens 读取商品的在线特征并 token 化。
// 缺失的特征跳过；商品完全无特征时返回空集合（content 相似度视为不可定义）。
func (s *FeastAttributeSource) ProductTokens(
	ctx context.Context,
	productID string,
) ([]string, error) {
	entityKey := s.EntityKey
	if entityKey == "" {
		entityKey = "product_id"
	}

	req := &feastsdk.OnlineFeaturesRequest{
		Features: s.Features,
		Entities: []feastsdk.Row{
			{entityKey: feastsdk.StrVal(productID)},
		},
		Project: s.Project,
	}

	resp, err := s.client.GetOnlineFeatures(ctx, req)
	if err != nil {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeUnavailable,
			fmt.Sprintf("feature: feast online features for %s: %v", productID, err))
	}

	rows := resp.Rows()
	if len(rows) == 0 {
		return nil, nil
	}
	row := rows[0]

	var tokens []string
	for _, ref := range s.Features {
		val, ok := row[ref]
		if !ok || val == nil {
			continue
		}
		dim := ref
		if i := strings.LastIndex(ref, ":"); i >= 0 {
			dim = ref[i+1:]
		}
		tokens = append(tokens, valueTokens(dim, val)...)
	}
	return tokens, nil
}

// AllProducts 委托给目录来源。
func (s *FeastAttributeSource) AllProducts(ctx context.Context) ([]string, error) {
	if s.Catalog == nil {
		return nil, core.NewDomainError(core.ModuleFeature, core.ErrorCodeNotSupported,
			"feature: feast source has no product catalog")
	}
	return s.Catalog.AllProducts(ctx)
}

// Close 关闭 Feast 连接。
func (s *FeastAttributeSource) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// valueTokens 把一个特征值转成 token。
// 列表值展开为多个 token（如 tags）；数值/布尔转字符串。
func valueTokens(dim string, val *feasttypes.Value) []string {
	switch v := val.Val.(type) {
	case *feasttypes.Value_StringVal:
		if v.StringVal == "" {
			return nil
		}
		return []string{Token(dim, v.StringVal)}
	case *feasttypes.Value_Int32Val:
		return []string{Token(dim, strconv.FormatInt(int64(v.Int32Val), 10))}
	case *feasttypes.Value_Int64Val:
		return []string{Token(dim, strconv.FormatInt(v.Int64Val, 10))}
	case *feasttypes.Value_FloatVal:
		return []string{Token(dim, strconv.FormatFloat(float64(v.FloatVal), 'g', -1, 32))}
	case *feasttypes.Value_DoubleVal:
		return []string{Token(dim, strconv.FormatFloat(v.DoubleVal, 'g', -1, 64))}
	case *feasttypes.Value_BoolVal:
		return []string{Token(dim, strconv.FormatBool(v.BoolVal))}
	case *feasttypes.Value_StringListVal:
		if v.StringListVal == nil {
			return nil
		}
		var tokens []string
		for _, item := range v.StringListVal.Val {
			if item == "" {
				continue
			}
			tokens = append(tokens, Token(dim, item))
		}
		return tokens
	default:
		return nil
	}
}
