package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/esports-fantasy/internal/domain/fantasy"
	"github.com/riskibarqy/esports-fantasy/internal/domain/match"
	"github.com/riskibarqy/esports-fantasy/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/esports-fantasy/internal/platform/id"
)

func openRound() fantasy.Round {
	return fantasy.Round{
		ID:            "r-open",
		Name:          "Weekly Open",
		Status:        fantasy.RoundOpen,
		StartsAt:      tickNow.Add(-24 * time.Hour),
		LocksAt:       tickNow.Add(24 * time.Hour),
		EndsAt:        tickNow.Add(7 * 24 * time.Hour),
		EntryFeeCents: 500,
		Currency:      "usd",
		MaxPicks:      3,
	}
}

func TestRoundService_SubmitPicks(t *testing.T) {
	t.Parallel()

	repo := memory.NewRoundRepository([]fantasy.Round{openRound()})
	svc := NewRoundService(repo, id.NewSequence("pick"))
	svc.now = func() time.Time { return tickNow }

	input := SubmitPicksInput{
		RoundID: "r-open",
		UserID:  "u1",
		Picks: []PickInput{
			{Provider: "pandascore", TeamExternalID: "vit", TeamName: "Vitality", TeamType: "pro"},
			{Provider: "FACEIT", TeamExternalID: "aur", TeamName: "Aurora", TeamType: "Amateur"},
		},
		StarTeamID: "vit",
	}
	got, err := svc.SubmitPicks(context.Background(), input)
	if err != nil {
		t.Fatalf("submit picks: %v", err)
	}
	if len(got.Picks) != 2 || got.Star == nil || got.Star.Provider != match.ProviderPandaScore {
		t.Fatalf("unexpected lineup: %+v", got)
	}

	// Re-submission replaces the previous lineup.
	input.Picks = input.Picks[:1]
	input.StarTeamID = ""
	if _, err := svc.SubmitPicks(context.Background(), input); err != nil {
		t.Fatalf("resubmit picks: %v", err)
	}
	stored, err := repo.ListPicks(context.Background(), "r-open", "u1")
	if err != nil {
		t.Fatalf("list picks: %v", err)
	}
	if len(stored) != 1 || stored[0].TeamExternalID != "vit" {
		t.Fatalf("unexpected stored picks: %+v", stored)
	}
	if _, ok, _ := repo.GetStarTeam(context.Background(), "r-open", "u1"); ok {
		t.Fatalf("expected star to be cleared")
	}
}

func TestRoundService_SubmitPicks_Errors(t *testing.T) {
	t.Parallel()

	locked := openRound()
	locked.ID = "r-locked"
	locked.LocksAt = tickNow.Add(-time.Minute)

	repo := memory.NewRoundRepository([]fantasy.Round{openRound(), locked})
	svc := NewRoundService(repo, id.NewSequence("pick"))
	svc.now = func() time.Time { return tickNow }

	pick := PickInput{Provider: "pandascore", TeamExternalID: "vit", TeamType: "pro"}
	tests := []struct {
		name      string
		input     SubmitPicksInput
		targetErr error
	}{
		{name: "missing user", input: SubmitPicksInput{RoundID: "r-open", Picks: []PickInput{pick}}, targetErr: ErrUnauthorized},
		{name: "unknown round", input: SubmitPicksInput{RoundID: "nope", UserID: "u1", Picks: []PickInput{pick}}, targetErr: ErrNotFound},
		{name: "locked round", input: SubmitPicksInput{RoundID: "r-locked", UserID: "u1", Picks: []PickInput{pick}}, targetErr: fantasy.ErrRoundLocked},
		{name: "duplicate team", input: SubmitPicksInput{RoundID: "r-open", UserID: "u1", Picks: []PickInput{pick, pick}}, targetErr: fantasy.ErrDuplicateTeamPick},
		{name: "unknown provider", input: SubmitPicksInput{RoundID: "r-open", UserID: "u1", Picks: []PickInput{{Provider: "hltv", TeamExternalID: "x", TeamType: "pro"}}}, targetErr: ErrInvalidInput},
		{name: "star not picked", input: SubmitPicksInput{RoundID: "r-open", UserID: "u1", Picks: []PickInput{pick}, StarTeamID: "navi"}, targetErr: fantasy.ErrStarNotPicked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SubmitPicks(context.Background(), tt.input)
			if !errors.Is(err, tt.targetErr) {
				t.Fatalf("expected error %v, got %v", tt.targetErr, err)
			}
		})
	}
}

func TestRoundService_ListRounds_HidesDrafts(t *testing.T) {
	t.Parallel()

	draft := openRound()
	draft.ID = "r-draft"
	draft.Status = fantasy.RoundDraft
	svc := NewRoundService(memory.NewRoundRepository([]fantasy.Round{openRound(), draft}), id.NewSequence("pick"))

	got, err := svc.ListRounds(context.Background())
	if err != nil {
		t.Fatalf("list rounds: %v", err)
	}
	if len(got) != 1 || got[0].ID != "r-open" {
		t.Fatalf("unexpected rounds: %+v", got)
	}
}
