package agent

import (
	"encoding/json"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/cpxbuddy/cpxbuddy/internal/tools"
)

// defineTools registers the tool declarations with Genkit. The bodies
// all funnel into the registry, so a tool behaves the same whether the
// framework executes it or the orchestrator dispatches it by hand.
func defineTools(g *genkit.Genkit, reg *tools.Registry) []ai.ToolRef {
	login := genkit.DefineTool(g, tools.KindLogin.String(),
		"Request a one-time password by email to start logging in to Copperx.",
		func(ctx *ai.ToolContext, in tools.LoginInput) (string, error) {
			return reg.Dispatch(ctx, tools.KindLogin, toArgs(in))
		})

	verifyOTP := genkit.DefineTool(g, tools.KindVerifyOTP.String(),
		"Verify the one-time password the user received by email and complete the login.",
		func(ctx *ai.ToolContext, in tools.VerifyOTPInput) (string, error) {
			return reg.Dispatch(ctx, tools.KindVerifyOTP, toArgs(in))
		})

	logout := genkit.DefineTool(g, tools.KindLogout.String(),
		"Log the user out of Copperx and clear their local session.",
		func(ctx *ai.ToolContext, in tools.LogoutInput) (string, error) {
			return reg.Dispatch(ctx, tools.KindLogout, toArgs(in))
		})

	balance := genkit.DefineTool(g, tools.KindBalance.String(),
		"Check the user's balance or recent transaction history. type is \"balance\" or \"transactionHistory\".",
		func(ctx *ai.ToolContext, in tools.BalanceInput) (string, error) {
			return reg.Dispatch(ctx, tools.KindBalance, toArgs(in))
		})

	send := genkit.DefineTool(g, tools.KindSend.String(),
		"Send funds to another Copperx user by recipient id.",
		func(ctx *ai.ToolContext, in tools.SendInput) (string, error) {
			return reg.Dispatch(ctx, tools.KindSend, toArgs(in))
		})

	withdraw := genkit.DefineTool(g, tools.KindWithdraw.String(),
		"Withdraw funds from Copperx to a linked account.",
		func(ctx *ai.ToolContext, in tools.WithdrawInput) (string, error) {
			return reg.Dispatch(ctx, tools.KindWithdraw, toArgs(in))
		})

	profile := genkit.DefineTool(g, tools.KindProfile.String(),
		"Fetch the user's Copperx account profile.",
		func(ctx *ai.ToolContext, in tools.ProfileInput) (string, error) {
			return reg.Dispatch(ctx, tools.KindProfile, toArgs(in))
		})

	kyc := genkit.DefineTool(g, tools.KindKYC.String(),
		"Check KYC verification status, or start a verification when nationality and country are given.",
		func(ctx *ai.ToolContext, in tools.KYCInput) (string, error) {
			return reg.Dispatch(ctx, tools.KindKYC, toArgs(in))
		})

	wallet := genkit.DefineTool(g, tools.KindWallet.String(),
		"Manage wallets. action is one of \"list\", \"balances\", \"setDefault\", \"deposit\", \"transactions\"; walletId is required for setDefault and deposit.",
		func(ctx *ai.ToolContext, in tools.WalletInput) (string, error) {
			return reg.Dispatch(ctx, tools.KindWallet, toArgs(in))
		})

	notify := genkit.DefineTool(g, tools.KindNotify.String(),
		"Enable deposit notifications for the user's chat.",
		func(ctx *ai.ToolContext, in tools.NotifyInput) (string, error) {
			return reg.Dispatch(ctx, tools.KindNotify, toArgs(in))
		})

	return []ai.ToolRef{login, verifyOTP, logout, balance, send, withdraw, profile, kyc, wallet, notify}
}

// toArgs flattens a typed input into the named-argument form Dispatch
// expects.
func toArgs(in any) map[string]any {
	raw, err := json.Marshal(in)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return map[string]any{}
	}
	return m
}
