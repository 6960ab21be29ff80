package wallet

import "github.com/Rhymond/go-money"

// FormatYen renders a whole-yen amount as "¥1,500"
func FormatYen(amount int64) string {
	return money.New(amount, money.JPY).Display()
}
