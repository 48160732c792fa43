package models

import "time"

// VerdictKind перечисляет возможные решения вычислителя доступа.
type VerdictKind int

// Порядок важен только для читаемости, сравнение всегда по равенству.
const (
	VerdictNoAccess VerdictKind = iota
	VerdictCanceled
	VerdictExpiring
	VerdictSubscription
	VerdictUnlimited
)

// String возвращает строковое имя решения для ответов API и логов.
func (k VerdictKind) String() string {
	switch k {
	case VerdictUnlimited:
		return "unlimited"
	case VerdictSubscription:
		return "subscription"
	case VerdictExpiring:
		return "expiring"
	case VerdictCanceled:
		return "canceled"
	default:
		return "no_access"
	}
}

// Verdict — решение вычислителя доступа по одной записи подписчика.
// Expires заполняется только для VerdictExpiring.
type Verdict struct {
	Kind    VerdictKind
	Expires time.Time
}

// Grants сообщает, даёт ли вердикт доступ к контенту на момент now.
// VerdictCanceled отличается от VerdictNoAccess только текстом для
// пользователя, доступа он не даёт.
func (v Verdict) Grants(now time.Time) bool {
	switch v.Kind {
	case VerdictUnlimited, VerdictSubscription:
		return true
	case VerdictExpiring:
		return v.Expires.After(now)
	default:
		return false
	}
}
