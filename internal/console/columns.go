package console

import (
	"strconv"
	"strings"
	"time"

	"affconsole/internal/i18n"
	"affconsole/internal/listing"
	"affconsole/internal/models"
)

const dateLayout = "2006-01-02"

func affiliatorColumns(msgs *i18n.Localizer) []listing.Column[models.Affiliator] {
	return []listing.Column[models.Affiliator]{
		{Key: "name", Label: msgs.T("col.name"), Value: func(r models.Affiliator) any { return r.Name }},
		{Key: "username", Label: msgs.T("col.username"), Value: func(r models.Affiliator) any { return r.Username }},
		{Key: "phone", Label: msgs.T("col.phone"), Value: func(r models.Affiliator) any { return r.Phone }},
		{Key: "email", Label: msgs.T("col.email"), Value: func(r models.Affiliator) any { return r.Email }},
		{Key: "status", Label: msgs.T("col.status"), Value: func(r models.Affiliator) any { return r.Status }},
		{
			Key:   "joinDate",
			Label: msgs.T("col.joinDate"),
			Value: func(r models.Affiliator) any { return formatDate(r.JoinDate) },
		},
	}
}

func customerColumns(msgs *i18n.Localizer, withAffiliator bool) []listing.Column[models.Customer] {
	cols := []listing.Column[models.Customer]{
		{Key: "name", Label: msgs.T("col.name"), Value: func(r models.Customer) any { return r.Name }},
		{Key: "phone", Label: msgs.T("col.phone"), Value: func(r models.Customer) any { return r.Phone }},
		{Key: "package", Label: msgs.T("col.package"), Value: func(r models.Customer) any { return r.Package }},
		{
			Key:    "monthlyFee",
			Label:  msgs.T("col.monthlyFee"),
			Value:  func(r models.Customer) any { return r.MonthlyFee },
			Render: func(r models.Customer) string { return formatRupiah(r.MonthlyFee) },
		},
		{Key: "status", Label: msgs.T("col.status"), Value: func(r models.Customer) any { return r.Status }},
		{Key: "address", Label: msgs.T("col.address"), Value: func(r models.Customer) any { return r.Address }},
		{
			Key:   "installedAt",
			Label: msgs.T("col.installedAt"),
			Value: func(r models.Customer) any { return formatDate(r.InstalledAt) },
		},
	}
	if withAffiliator {
		affiliator := listing.Column[models.Customer]{
			Key:   "affiliator",
			Label: msgs.T("col.affiliator"),
			Value: func(r models.Customer) any { return r.AffiliatorName },
		}
		cols = append(cols[:1], append([]listing.Column[models.Customer]{affiliator}, cols[1:]...)...)
	}
	return cols
}

func paymentColumns(msgs *i18n.Localizer, withAffiliator bool) []listing.Column[models.Payment] {
	cols := []listing.Column[models.Payment]{
		{
			Key:   "paymentDate",
			Label: msgs.T("col.paymentDate"),
			Value: func(r models.Payment) any { return formatDate(r.PaymentDate) },
		},
		{
			Key:    "amount",
			Label:  msgs.T("col.amount"),
			Value:  func(r models.Payment) any { return r.Amount },
			Render: func(r models.Payment) string { return formatRupiah(r.Amount) },
		},
		{Key: "method", Label: msgs.T("col.method"), Value: func(r models.Payment) any { return r.Method }},
		{Key: "notes", Label: msgs.T("col.notes"), Value: func(r models.Payment) any { return r.Notes }},
		{Key: "proof", Label: msgs.T("col.proof"), Value: func(r models.Payment) any { return r.ProofImage }},
	}
	if withAffiliator {
		affiliator := listing.Column[models.Payment]{
			Key:   "affiliator",
			Label: msgs.T("col.affiliator"),
			Value: func(r models.Payment) any { return r.AffiliatorName },
		}
		cols = append([]listing.Column[models.Payment]{affiliator}, cols...)
	}
	return cols
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// formatRupiah renders whole rupiah with dot thousand separators,
// e.g. "Rp 250.000".
func formatRupiah(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return sign + "Rp " + b.String()
}

func affiliatorInput(a models.Affiliator) models.AffiliatorInput {
	return models.AffiliatorInput{
		Name:        a.Name,
		Username:    a.Username,
		Phone:       a.Phone,
		Email:       a.Email,
		Address:     a.Address,
		BankName:    a.BankName,
		BankAccount: a.BankAccount,
		Status:      a.Status,
	}
}

func customerInput(c models.Customer) models.CustomerInput {
	return models.CustomerInput{
		AffiliatorUUID: c.AffiliatorUUID,
		Name:           c.Name,
		Phone:          c.Phone,
		Address:        c.Address,
		Package:        c.Package,
		MonthlyFee:     c.MonthlyFee,
		Status:         c.Status,
		InstalledAt:    c.InstalledAt,
	}
}

func paymentInput(p models.Payment) models.PaymentInput {
	return models.PaymentInput{
		AffiliatorUUID: p.AffiliatorUUID,
		Amount:         p.Amount,
		PaymentDate:    p.PaymentDate,
		Method:         p.Method,
		ProofImage:     p.ProofImage,
		Notes:          p.Notes,
	}
}
