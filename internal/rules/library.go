package rules

import (
	"github.com/ppiankov/tdscan/internal/model"
	"github.com/shopspring/decimal"
)

// DefaultRules returns the built-in TDS/TCS library. Each call returns fresh
// copies, so callers may modify the result freely.
func DefaultRules() []model.Rule {
	return []model.Rule{
		// TDS sections
		def("194A", "Interest other than on securities", 40000, nil, "10", model.CategoryPayment, 1, model.SearchCredit,
			"interest", "fd", "fixed deposit", "savings", "recurring deposit"),
		def("194C", "Contractor Payments (Individual/HUF)", 100000, model.Limit(30000), "1", model.CategoryPayment, 2, model.SearchCredit,
			"contractor", "contract", "construction", "manufacturing"),
		def("194C", "Contractor Payments (Others)", 100000, model.Limit(30000), "2", model.CategoryPayment, 2, model.SearchCredit,
			"contractor", "contract", "advertising", "advertisement", "catering", "transport"),
		def("194D", "Insurance Commission", 15000, nil, "5", model.CategoryPayment, 1, model.SearchCredit,
			"insurance commission", "insurance agent", "insurance broker"),
		def("194DA", "Life Insurance Policy Payment", 100000, nil, "2", model.CategoryPayment, 1, model.SearchCredit,
			"life insurance", "policy maturity", "insurance payout"),
		def("194G", "Commission on lottery tickets", 15000, nil, "2", model.CategoryPayment, 1, model.SearchCredit,
			"lottery commission", "lottery ticket"),
		def("194H", "Commission or Brokerage", 15000, nil, "5", model.CategoryPayment, 1, model.SearchCredit,
			"commission", "brokerage", "broker", "agent"),
		def("194I", "Rent of land/building/furniture", 240000, nil, "10", model.CategoryPayment, 1, model.SearchCredit,
			"rent", "rental", "lease", "hire charges", "godown", "shop rent", "office rent"),
		def("194I", "Rent of machinery/equipment", 240000, nil, "2", model.CategoryPayment, 1, model.SearchCredit,
			"machinery rent", "equipment rent", "plant rent"),
		def("194J", "Professional or Technical Services", 30000, nil, "10", model.CategoryPayment, 1, model.SearchCredit,
			"professional", "consultancy", "consulting", "technical", "legal", "medical", "engineering",
			"architectural", "accountancy", "freelance", "professional fees", "technical services"),
		def("194J", "Technical services (call centre)", 30000, nil, "2", model.CategoryPayment, 1, model.SearchCredit,
			"call centre", "call center"),
		def("194K", "Income from mutual fund/UTI", 5000, nil, "10", model.CategoryPayment, 1, model.SearchCredit,
			"mutual fund", "uti", "dividend"),
		def("194LA", "Compensation on acquisition of property", 250000, nil, "10", model.CategoryPayment, 1, model.SearchCredit,
			"compensation", "acquisition", "land acquisition"),
		def("194M", "Payment by individuals/HUF", 5000000, model.Limit(5000000), "5", model.CategoryPayment, 3, model.SearchCredit,
			"contractor", "professional", "contract work"),
		def("194N", "Cash withdrawal", 10000000, model.Limit(2000000), "2", model.CategoryPayment, 1, model.SearchDebit,
			"cash withdrawal", "cash"),
		def("194O", "E-commerce participants", 500000, nil, "1", model.CategoryPayment, 1, model.SearchCredit,
			"e-commerce", "ecommerce", "online marketplace"),
		def("194Q", "Purchase of goods exceeding ₹50 lakhs", 5000000, nil, "0.1", model.CategoryPayment, 2, model.SearchCredit,
			"purchase", "goods purchase", "material purchase", "purchase of goods"),
		def("194R", "Benefits or perquisites", 20000, nil, "10", model.CategoryPayment, 1, model.SearchCredit,
			"benefit", "perquisite", "perk", "incentive", "reward"),
		def("194S", "Virtual digital assets", 50000, model.Limit(10000), "1", model.CategoryPayment, 1, model.SearchCredit,
			"cryptocurrency", "crypto", "bitcoin", "virtual asset", "nft"),
		def("193", "Interest on securities", 10000, nil, "10", model.CategoryPayment, 1, model.SearchCredit,
			"debenture", "bond", "security interest"),
		def("194B", "Lottery/puzzle winnings", 10000, nil, "30", model.CategoryPayment, 1, model.SearchCredit,
			"lottery", "puzzle", "game show", "winning"),
		def("194BA", "Online gaming winnings", 0, nil, "30", model.CategoryPayment, 1, model.SearchCredit,
			"online game", "gaming", "online gambling"),
		def("194BB", "Horse race winnings", 10000, nil, "30", model.CategoryPayment, 1, model.SearchCredit,
			"horse race", "race winning"),
		def("194EE", "NSS payments", 2500, nil, "10", model.CategoryPayment, 1, model.SearchCredit,
			"nss", "national savings"),
		def("192", "Salary (as per IT slab)", 0, nil, "0", model.CategoryPayment, 1, model.SearchCredit,
			"salary", "wages", "remuneration"),
		def("194IA", "Sale of immovable property", 5000000, nil, "1", model.CategoryPayment, 1, model.SearchCredit,
			"sale of property", "property sale", "land sale"),

		// TCS sections
		def("206C(1H)", "Sale of goods exceeding ₹50 lakhs", 5000000, nil, "0.1", model.CategoryCollection, 3, model.SearchDebit,
			"sales", "goods sold", "merchandise", "sale invoice"),
		def("206C(1)", "Sale of timber, forest produce, scrap", 0, nil, "1", model.CategoryCollection, 2, model.SearchDebit,
			"tendu", "timber", "forest", "scrap", "minerals"),
		def("206CCA", "Foreign remittance (LRS)", 700000, nil, "5", model.CategoryCollection, 1, model.SearchDebit,
			"foreign remittance", "liberalised remittance", "lrs", "overseas"),
		def("206C(1G)", "Sale of motor vehicle", 1000000, nil, "1", model.CategoryCollection, 1, model.SearchDebit,
			"motor vehicle", "car", "vehicle sale", "automobile"),
	}
}

func def(section, description string, threshold int64, perBill *decimal.Decimal, rate string,
	category model.Category, priority int, search model.SearchTarget, keywords ...string) model.Rule {
	return model.Rule{
		Section:                 section,
		Description:             description,
		Keywords:                keywords,
		ThresholdCumulative:     decimal.NewFromInt(threshold),
		ThresholdPerTransaction: perBill,
		Rate:                    decimal.RequireFromString(rate),
		SearchTarget:            search,
		Priority:                priority,
		Enabled:                 true,
		Category:                category,
	}
}
