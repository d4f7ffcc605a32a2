package i18n

import (
	"strings"
	"sync/atomic"
)

// Translator retrieves localized messages for error and issue codes.
// data provides optional metadata to embed in the message (for example,
// "max" or "expected").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

var dictionaries = map[string]map[string]string{
	"en": {
		"validation_failed":      "validation failed",
		"type_mismatch":          "type mismatch",
		"cast_failure":           "cast failure",
		"missing_required":       "required property is missing",
		"unresolved_nested_type": "unresolved nested type",
		"unknown_transformer":    "unknown transformer",
		"transformation_failure": "transformation failed",
		"required":               "the {field} field is required",
		"unknown_key":            "unknown key",
		"invalid_type":           "the {field} field must be of type {expected}",
		"too_small":              "the {field} field must be at least {min}",
		"too_big":                "the {field} field must not be greater than {max}",
		"too_short":              "the {field} field must be at least {min} characters",
		"too_long":               "the {field} field must not be longer than {max} characters",
		"invalid_format":         "the {field} field must be a valid {expected}",
		"invalid_enum":           "the selected {field} is invalid",
		"pattern":                "the {field} field format is invalid",
		"duplicate_key":          "key {key} is duplicated",
		"parse_error":            "input could not be decoded",
		"truncated":              "too many issues",
	},
	"ja": {
		"validation_failed":      "検証に失敗しました",
		"type_mismatch":          "型が一致しません",
		"cast_failure":           "変換に失敗しました",
		"missing_required":       "必須プロパティが不足しています",
		"unresolved_nested_type": "入れ子の型を解決できません",
		"unknown_transformer":    "未知の変換器です",
		"transformation_failure": "変換処理に失敗しました",
		"required":               "{field} は必須です",
		"unknown_key":            "未知のキーです",
		"invalid_type":           "{field} の型が不正です",
		"too_small":              "{field} は {min} 以上である必要があります",
		"too_big":                "{field} は {max} 以下である必要があります",
		"too_short":              "{field} は {min} 文字以上である必要があります",
		"too_long":               "{field} は {max} 文字以下である必要があります",
		"invalid_format":         "{field} の形式が不正です",
		"invalid_enum":           "{field} の値が不正です",
		"pattern":                "{field} の形式が不正です",
		"duplicate_key":          "キー {key} が重複しています",
		"parse_error":            "入力を解析できません",
		"truncated":              "問題が多すぎます",
	},
}

func (t dictTranslator) Message(code string, data map[string]string) string {
	msg, ok := dictionaries[t.lang][code]
	if !ok {
		return code
	}
	if len(data) == 0 || !strings.Contains(msg, "{") {
		return msg
	}
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

// holder keeps the stored type fixed so any Translator implementation can
// be swapped in.
type holder struct{ Translator }

var current atomic.Pointer[holder]

func init() { current.Store(&holder{dictTranslator{lang: "en"}}) }

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	current.Store(&holder{dictTranslator{lang: lang}})
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		tr = dictTranslator{lang: "en"}
	}
	current.Store(&holder{tr})
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string {
	return current.Load().Message(code, data)
}
