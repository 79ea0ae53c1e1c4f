package tools

import (
	"fmt"
	"strings"

	"github.com/cpxbuddy/cpxbuddy/internal/copperx"
)

// Tool results are plain text. The second model pass restyles them, so
// these renderings favor completeness over polish.

func formatBalance(b *copperx.Balance) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Balance: %s %s available of %s %s total.", b.Available, b.Currency, b.Total, b.Currency)
	if b.LastUpdated != "" {
		fmt.Fprintf(&sb, " Last updated %s.", b.LastUpdated)
	}
	return sb.String()
}

func formatTransactions(txs []copperx.Transaction) string {
	if len(txs) == 0 {
		return "No transactions found."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Last %d transactions:\n", len(txs))
	for _, tx := range txs {
		fmt.Fprintf(&sb, "- %s %s %s (%s, %s)\n", tx.Type, tx.Amount, tx.Currency, tx.Status, tx.CreatedAt)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatProfile(u *copperx.User, accounts []copperx.Account) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Profile for %s %s <%s>\n", u.FirstName, u.LastName, u.Email)
	fmt.Fprintf(&sb, "Role: %s, status: %s", u.Role, u.Status)
	if u.WalletAddress != "" {
		fmt.Fprintf(&sb, "\nWallet address: %s", u.WalletAddress)
	}
	if len(accounts) == 0 {
		sb.WriteString("\nNo linked payout accounts.")
		return sb.String()
	}
	sb.WriteString("\nLinked accounts:")
	for _, a := range accounts {
		fmt.Fprintf(&sb, "\n- %s %s (%s)", a.Type, a.ID, a.Status)
	}
	return sb.String()
}

func formatWallets(wallets []copperx.Wallet) string {
	if len(wallets) == 0 {
		return "No wallets found."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d wallet(s):\n", len(wallets))
	for _, w := range wallets {
		def := ""
		if w.IsDefault {
			def = " (default)"
		}
		fmt.Fprintf(&sb, "- %s on %s: %s%s\n", w.ID, w.Network, w.WalletAddress, def)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatWalletBalances(balances []copperx.WalletBalance) string {
	if len(balances) == 0 {
		return "No wallet balances found."
	}
	var sb strings.Builder
	for _, wb := range balances {
		def := ""
		if wb.IsDefault {
			def = " (default)"
		}
		fmt.Fprintf(&sb, "Wallet %s on %s%s:\n", wb.WalletID, wb.Network, def)
		if len(wb.Balances) == 0 {
			sb.WriteString("- empty\n")
			continue
		}
		for _, tb := range wb.Balances {
			fmt.Fprintf(&sb, "- %s %s\n", tb.Balance, tb.Symbol)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatDepositInfo(info *copperx.DepositInfo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Deposit address for wallet %s on %s: %s", info.WalletID, info.Network, info.DepositAddress)
	if info.MinimumDeposit != "" {
		fmt.Fprintf(&sb, " (minimum deposit %s)", info.MinimumDeposit)
	}
	return sb.String()
}

func formatKycStatus(email, status string) string {
	base := fmt.Sprintf("KYC status for %s: %s.", email, status)
	switch status {
	case "approved", "verified":
		return base + " You are fully verified and can use all platform features."
	case "pending", "submitted", "initiated":
		return base + " Your application is under review; no action is needed right now."
	case "rejected":
		return base + " Your application was rejected. Provide your nationality and country to start a new one."
	case "", "not_found":
		return fmt.Sprintf("No KYC application found for %s. Provide your nationality and country to start one.", email)
	default:
		return base
	}
}

func formatKycApplication(k *copperx.Kyc) string {
	var sb strings.Builder
	switch k.Status {
	case "pending", "submitted":
		fmt.Fprintf(&sb, "Your KYC application %s is under review.", k.ID)
		if k.CreatedAt != "" {
			fmt.Fprintf(&sb, " Submitted %s.", k.CreatedAt)
		}
		if k.UpdatedAt != "" {
			fmt.Fprintf(&sb, " Last updated %s.", k.UpdatedAt)
		}
		sb.WriteString(" Review typically takes 1-2 business days.")
	case "initiated":
		fmt.Fprintf(&sb, "Your KYC application %s is in progress.", k.ID)
		if k.Detail != nil && k.Detail.KycURL != "" {
			fmt.Fprintf(&sb, " Complete your verification here: %s (the link expires in 24 hours).", k.Detail.KycURL)
		}
	case "rejected":
		fmt.Fprintf(&sb, "Your KYC application %s was rejected. Contact support to learn why before applying again.", k.ID)
	default:
		fmt.Fprintf(&sb, "Your KYC application %s has status %s.", k.ID, k.Status)
	}
	if k.Country != "" {
		fmt.Fprintf(&sb, " Country: %s.", k.Country)
	}
	if k.ProviderCode != "" {
		fmt.Fprintf(&sb, " Provider: %s.", k.ProviderCode)
	}
	return sb.String()
}

func formatNewKyc(k *copperx.Kyc) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "New KYC application created (id %s, status %s).", k.ID, k.Status)
	if k.Detail != nil && k.Detail.KycURL != "" {
		fmt.Fprintf(&sb, " Complete your verification here: %s (the link expires in 24 hours).", k.Detail.KycURL)
	}
	return sb.String()
}

func formatTransfer(action string, t *copperx.Transfer) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s %s, status %s, id %s", action, t.Amount, t.Currency, t.Status, t.ID)
	if t.Recipient != "" {
		fmt.Fprintf(&sb, ", recipient %s", t.Recipient)
	}
	return sb.String()
}

func formatTransfers(page *copperx.TransferPage) string {
	if page == nil || len(page.Data) == 0 {
		return "No transfers found."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Transfers (page %d, %d of %d):\n", page.Page, len(page.Data), page.Count)
	for _, t := range page.Data {
		fmt.Fprintf(&sb, "- %s %s %s (%s, %s)\n", t.Type, t.Amount, t.Currency, t.Status, t.CreatedAt)
	}
	return strings.TrimRight(sb.String(), "\n")
}
