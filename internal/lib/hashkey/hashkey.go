// Package hashkey генерирует 32-символьные шестнадцатеричные идентификаторы:
// логин-токены и публичные идентификаторы подписчиков.
//
// Значение получается двумя вложенными проходами необратимого хэширования:
// внешний хэш от конкатенации хэша соли и хэша входной строки. Стойкость
// криптографической подписи не требуется, достаточно практической
// неугадываемости и уникальности.
package hashkey

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strconv"
	"time"
)

var format = regexp.MustCompile(`^[0-9a-f]{32}$`)

// IsValid проверяет, что строка — корректный 32-символьный hex-идентификатор
// в нижнем регистре. Проверка выполняется до любого обращения к хранилищу.
func IsValid(h string) bool {
	return format.MatchString(h)
}

func sum(s string) string {
	h := md5.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}

// New возвращает идентификатор, выведенный из соли, текущего времени и
// входной строки. Соль меняется во времени, поэтому повторные вызовы с той
// же строкой дают разные значения.
func New(salt, str string) string {
	seed := salt + strconv.FormatInt(time.Now().UnixNano(), 10)
	return sum(sum(seed) + sum(str))
}
