package config

import "github.com/nao1215/pageaudit/internal/model"

// BuiltinSuites returns the suites shipped with pageaudit. A fresh map is
// returned on every call.
func BuiltinSuites() map[string]Suite {
	return map[string]Suite{
		"au": {
			Label: "AU",
			Pages: []model.PageTarget{
				{Title: "Home", URL: "https://www.forbes.com/advisor/au/", Heading: "Smart Financial Decisions Made Simple"},
				{Title: "Investing", URL: "https://www.forbes.com/advisor/au/investing/", Heading: "How To Invest"},
				{Title: "Credit Cards", URL: "https://www.forbes.com/advisor/au/credit-cards/best-credit-cards/", Heading: "Our Pick Of The Best Credit Cards For Australians"},
				{Title: "SuperFunds", URL: "https://www.forbes.com/advisor/au/superannuation/best-default-superannuation-funds-in-australia/", Heading: "Best Default Superannuation Funds"},
			},
			ResourceFilter: model.ResourceFilter{URLContains: "forbes.com/advisor/au/"},
		},
		"ca": {
			Label: "CA",
			Pages: []model.PageTarget{
				{Title: "Home", URL: "https://www.forbes.com/advisor/ca/", Heading: "Smart Financial Decisions Made Simple"},
				{Title: "Credit Cards", URL: "https://www.forbes.com/advisor/ca/credit-cards/best/best-credit-cards/", Heading: "Compare Canada's Best Credit Cards and Choose Your Perfect Match"},
				{Title: "Business", URL: "https://www.forbes.com/advisor/ca/business/", Heading: "Transform Your Small Business"},
				{Title: "Cash Back Credit Cards", URL: "https://www.forbes.com/advisor/ca/credit-cards/best/cash-back/", Heading: "Best Cash Back Credit Cards In Canada"},
				{Title: "Mortgage Lenders", URL: "https://www.forbes.com/advisor/ca/mortgages/best-mortgage-lenders/", Heading: "Best Mortgage Lenders In Canada"},
				{Title: "Mortgage Rates", URL: "https://www.forbes.com/advisor/ca/mortgages/best-mortgage-rates-in-canada/", Heading: "Best Mortgage Rates In Canada"},
				{Title: "Personal Loans", URL: "https://www.forbes.com/advisor/ca/personal-loans/best-personal-loans/", Heading: "Best Personal Loans In Canada"},
				{Title: "GIC Rates", URL: "https://www.forbes.com/advisor/ca/banking/gic/best-gic-rates/", Heading: "Best GIC Rates In Canada"},
				{Title: "Savings Accounts", URL: "https://www.forbes.com/advisor/ca/banking/savings/best-savings-accounts/", Heading: "Best Savings Accounts In Canada"},
				{Title: "Chequing Accounts", URL: "https://www.forbes.com/advisor/ca/banking/chequing/best-chequing-accounts/", Heading: "Best Chequing Accounts In Canada"},
				{Title: "Travel Credit Cards", URL: "https://www.forbes.com/advisor/ca/credit-cards/best/travel/", Heading: "Best Travel Credit Cards In Canada"},
			},
			ResourceFilter: model.ResourceFilter{HostContains: "forbes.com"},
		},
	}
}
