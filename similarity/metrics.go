package similarity

import "math"

// 相似度度量的纯函数实现。
//
// 所有函数返回 (score, ok)：ok=false 表示该 pair 上相似度无定义
// （没有共同维度等），调用方跳过、不写边。无定义不等于 0：
// 0 表示测得的不相似，无定义表示没有信号。

// Cosine 计算加权余弦相似度：
// 点积只在共同维度上累加，范数用各自完整向量计算（adjusted/weighted cosine）。
// 共同维度为空或任一范数为 0 时无定义。值域 [0,1]（输入非负时）。
func Cosine(v1, v2 map[string]float64) (float64, bool) {
	if len(v1) == 0 || len(v2) == 0 {
		return 0, false
	}

	var dot float64
	shared := 0
	for k, a := range v1 {
		if b, ok := v2[k]; ok {
			dot += a * b
			shared++
		}
	}
	if shared == 0 {
		return 0, false
	}

	var norm1, norm2 float64
	for _, a := range v1 {
		norm1 += a * a
	}
	for _, b := range v2 {
		norm2 += b * b
	}
	norm1 = math.Sqrt(norm1)
	norm2 = math.Sqrt(norm2)
	if norm1 == 0 || norm2 == 0 {
		return 0, false
	}

	return dot / (norm1 * norm2), true
}

// Pearson 计算皮尔逊相关系数，值域 [-1,1]。
// 只在共同维度上计算，各自以共同集上的均值做中心化；
// 共同维度少于 2 个时无定义；任一侧方差为 0 时返回 0（有定义）。
func Pearson(v1, v2 map[string]float64) (float64, bool) {
	shared := make([]string, 0)
	for k := range v1 {
		if _, ok := v2[k]; ok {
			shared = append(shared, k)
		}
	}
	if len(shared) < 2 {
		return 0, false
	}

	var mean1, mean2 float64
	for _, k := range shared {
		mean1 += v1[k]
		mean2 += v2[k]
	}
	mean1 /= float64(len(shared))
	mean2 /= float64(len(shared))

	var cov, var1, var2 float64
	for _, k := range shared {
		d1 := v1[k] - mean1
		d2 := v2[k] - mean2
		cov += d1 * d2
		var1 += d1 * d1
		var2 += d2 * d2
	}
	if var1 == 0 || var2 == 0 {
		return 0, true
	}

	return cov / (math.Sqrt(var1) * math.Sqrt(var2)), true
}

// Jaccard 计算二值 Jaccard 相似度：|交集|/|并集|，完全忽略权重。
// 交集为空时无定义（没有共同信号，不写边）。值域 [0,1]。
func Jaccard(v1, v2 map[string]float64) (float64, bool) {
	if len(v1) == 0 || len(v2) == 0 {
		return 0, false
	}

	intersection := 0
	for k := range v1 {
		if _, ok := v2[k]; ok {
			intersection++
		}
	}
	if intersection == 0 {
		return 0, false
	}

	union := len(v1) + len(v2) - intersection
	return float64(intersection) / float64(union), true
}

// TokenJaccard 计算两个属性 token 集合的 Jaccard 相似度，
// 用于 content 相似度（类目/品牌/颜色/材质/性别/季节）。
// 不依赖交互数据，对零交互商品同样有定义；双方均为空集时无定义。
func TokenJaccard(tokens1, tokens2 []string) (float64, bool) {
	if len(tokens1) == 0 && len(tokens2) == 0 {
		return 0, false
	}

	set1 := make(map[string]struct{}, len(tokens1))
	for _, t := range tokens1 {
		set1[t] = struct{}{}
	}
	set2 := make(map[string]struct{}, len(tokens2))
	for _, t := range tokens2 {
		set2[t] = struct{}{}
	}

	intersection := 0
	for t := range set1 {
		if _, ok := set2[t]; ok {
			intersection++
		}
	}
	union := len(set1) + len(set2) - intersection
	if union == 0 {
		return 0, false
	}
	return float64(intersection) / float64(union), true
}
