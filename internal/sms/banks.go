package sms

import "strings"

// bankSenderCodes are substrings of known bank SMS sender ids.
var bankSenderCodes = []string{
	"HDFCBK", "HDFC",
	"ICICIB", "ICICI",
	"SBIINB", "SBI",
	"AXISBK", "AXIS",
	"KOTAKBNK", "KOTAK",
	"PNBSMS", "PNB",
	"BOIIND", "BOI",
	"CBSSBI",
	"CANBNK", "CANARA",
	"UNIONBK",
	"TMBSMS", "TMB",
	"IDFCFB", "IDFC",
	"YESBNK", "YES",
	"INDBNK", "INDIAN",
	"SCBANK", "SC",
	"CITIBK", "CITI",
	"HSBCIN", "HSBC",
	"DEUTIN", "DEUTSCHE",
}

// bankNames maps sender fragments to display names. Order matters: the
// first fragment contained in the sender wins.
var bankNames = []struct {
	fragment string
	name     string
}{
	{"HDFC", "HDFC Bank"},
	{"ICICI", "ICICI Bank"},
	{"SBI", "State Bank of India"},
	{"AXIS", "Axis Bank"},
	{"KOTAK", "Kotak Bank"},
	{"PNB", "Punjab National Bank"},
	{"BOI", "Bank of India"},
	{"CANARA", "Canara Bank"},
	{"UNION", "Union Bank"},
	{"TMB", "Tamilnad Mercantile Bank"},
	{"IDFC", "IDFC First Bank"},
	{"YES", "Yes Bank"},
	{"INDIAN", "Indian Bank"},
	{"SC", "Standard Chartered"},
	{"CITI", "Citibank"},
	{"HSBC", "HSBC"},
	{"DEUTSCHE", "Deutsche Bank"},
}

// DefaultBankName is used when the sender matches no known bank.
const DefaultBankName = "Bank"

var senderNormalizer = strings.NewReplacer("-", "", "_", "")

// IsBankSender reports whether sender looks like a bank's SMS id, e.g.
// "VM-HDFCBK" or "ad_icicib". It is a whitelist check only.
func IsBankSender(sender string) bool {
	normalized := senderNormalizer.Replace(strings.ToUpper(sender))
	for _, code := range bankSenderCodes {
		if strings.Contains(normalized, code) {
			return true
		}
	}
	return false
}

// BankName resolves a display name from the sender id.
func BankName(sender string) string {
	upper := strings.ToUpper(sender)
	for _, b := range bankNames {
		if strings.Contains(upper, b.fragment) {
			return b.name
		}
	}
	return DefaultBankName
}
