package constants

import (
	"strings"
	"unicode"
)

// FieldType is the value shape inferred for a schema field. It selects the regex
// library, the validator and the formatter used for that field.
type FieldType string

const (
	FieldCPF      FieldType = "cpf"
	FieldCNPJ     FieldType = "cnpj"
	FieldEmail    FieldType = "email"
	FieldPhone    FieldType = "phone"
	FieldCEP      FieldType = "cep"
	FieldUF       FieldType = "uf"
	FieldCity     FieldType = "city"
	FieldAddress  FieldType = "address"
	FieldDate     FieldType = "date"
	FieldCurrency FieldType = "currency"
	FieldNumber   FieldType = "number"
	FieldText     FieldType = "text"
)

// detection order matters: "estado" must win over "cidade" for "cidade_estado"-like names,
// identifiers before generic numbers.
var fieldTypeOrder = []FieldType{
	FieldCPF,
	FieldCNPJ,
	FieldEmail,
	FieldPhone,
	FieldCEP,
	FieldUF,
	FieldCity,
	FieldAddress,
	FieldDate,
	FieldCurrency,
	FieldNumber,
}

var fieldTypeKeywords = map[FieldType][]string{
	FieldCPF:      {"cpf"},
	FieldCNPJ:     {"cnpj"},
	FieldEmail:    {"email", "mail"},
	FieldPhone:    {"telefone", "phone", "celular", "fone", "tel"},
	FieldCEP:      {"cep", "postal", "zip"},
	FieldUF:       {"estado", "uf", "state"},
	FieldCity:     {"cidade", "city", "municipio", "município"},
	FieldAddress:  {"endereco", "endereço", "address", "logradouro"},
	FieldDate:     {"data", "date", "nascimento", "vencimento", "emissao", "emissão"},
	FieldCurrency: {"valor", "preco", "preço", "price", "amount", "total", "money"},
	FieldNumber:   {"numero", "número", "number", "num", "qtd", "quantidade"},
}

// UFCodes holds the 27 Brazilian federative unit codes.
var UFCodes = map[string]struct{}{
	"AC": {}, "AL": {}, "AP": {}, "AM": {}, "BA": {}, "CE": {}, "DF": {}, "ES": {}, "GO": {},
	"MA": {}, "MT": {}, "MS": {}, "MG": {}, "PA": {}, "PB": {}, "PR": {}, "PE": {}, "PI": {},
	"RJ": {}, "RN": {}, "RS": {}, "RO": {}, "RR": {}, "SC": {}, "SP": {}, "SE": {}, "TO": {},
}

// StateNames maps folded state names to their UF code.
var StateNames = map[string]string{
	"acre": "AC", "alagoas": "AL", "amapa": "AP", "amazonas": "AM", "bahia": "BA",
	"ceara": "CE", "distrito federal": "DF", "espirito santo": "ES", "goias": "GO",
	"maranhao": "MA", "mato grosso": "MT", "mato grosso do sul": "MS", "minas gerais": "MG",
	"para": "PA", "paraiba": "PB", "parana": "PR", "pernambuco": "PE", "piaui": "PI",
	"rio de janeiro": "RJ", "rio grande do norte": "RN", "rio grande do sul": "RS",
	"rondonia": "RO", "roraima": "RR", "santa catarina": "SC", "sao paulo": "SP",
	"sergipe": "SE", "tocantins": "TO",
}

// DetectFieldType infers the field type from the field name first and the description second.
func DetectFieldType(name, description string) FieldType {
	if ft, ok := matchKeywords(keywordTokens(name)); ok {
		return ft
	}
	if ft, ok := matchKeywords(keywordTokens(description)); ok {
		return ft
	}
	return FieldText
}

func matchKeywords(tokens map[string]struct{}) (FieldType, bool) {
	for _, ft := range fieldTypeOrder {
		for _, kw := range fieldTypeKeywords[ft] {
			if _, ok := tokens[kw]; ok {
				return ft, true
			}
		}
	}
	return "", false
}

func keywordTokens(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, t := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		out[t] = struct{}{}
	}
	return out
}
