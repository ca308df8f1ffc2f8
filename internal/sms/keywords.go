package sms

import "strings"

var debitKeywords = []string{
	"debited", "withdrawn", "spent", "paid", "purchase", "debit", "used", "sent",
}

var creditKeywords = []string{
	"credited", "deposited", "received", "credit", "refund",
}

// excludeKeywords mark statements, bills, balance alerts, rewards, EMI
// notices and promotions. They only reject a message that has no
// transaction keyword.
var excludeKeywords = []string{
	// statements and bills
	"statement", "total amount due", "min amount due", "minimum due",
	"payment due", "bill generated", "outstanding", "due date",
	// balance alerts
	"available balance", "avl bal", "current balance", "balance is",
	// rewards and limits
	"reward points", "cashpoints", "credit limit", "limit available",
	// mandates
	"auto debit", "emi deducted", "emi due", "standing instruction",
	// promotions
	"voucher", "congrats", "congratulations", "offer", "cashback offer",
	"claim now", "redeem", "promo code", "discount code", "coupon",
	"t&c apply", "terms and conditions",
}

func containsAny(lowerBody string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(lowerBody, k) {
			return true
		}
	}
	return false
}
