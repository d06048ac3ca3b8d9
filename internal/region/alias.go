package region

import "strings"

// AliasTable maps short province names to their official names.
type AliasTable map[string]string

// DefaultAliases returns the short-name table for the 17 first-tier divisions.
func DefaultAliases() AliasTable {
	return AliasTable{
		"서울": "서울특별시",
		"부산": "부산광역시",
		"대구": "대구광역시",
		"인천": "인천광역시",
		"광주": "광주광역시",
		"대전": "대전광역시",
		"울산": "울산광역시",
		"세종": "세종특별자치시",
		"경기": "경기도",
		"강원": "강원특별자치도",
		"충북": "충청북도",
		"충남": "충청남도",
		"전북": "전북특별자치도",
		"전남": "전라남도",
		"경북": "경상북도",
		"경남": "경상남도",
		"제주": "제주특별자치도",
	}
}

// Resolve returns the official name for token, or token unchanged.
// Official names are never keys, so resolving twice is a no-op.
func (t AliasTable) Resolve(token string) string {
	if canonical, ok := t[token]; ok {
		return canonical
	}
	return token
}

// Normalize resolves the first token of a query or selection.
// Later tokens are left alone and whitespace runs collapse to one space.
func (t AliasTable) Normalize(query string) string {
	tokens := strings.Fields(query)
	if len(tokens) == 0 {
		return ""
	}
	tokens[0] = t.Resolve(tokens[0])
	return strings.Join(tokens, " ")
}
