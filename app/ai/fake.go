package ai

import (
	"context"
	"sync"
)

// FakeModel returns a canned output and records every call.
type FakeModel struct {
	mu     sync.Mutex
	Output string
	Err    error
	Calls  []FakeCall
}

type FakeCall struct {
	SystemInstruction string
	UserTurn          string
}

func NewFakeModel(output string) *FakeModel {
	return &FakeModel{Output: output}
}

func (f *FakeModel) Name() string {
	return "fake"
}

func (f *FakeModel) GenerateContent(ctx context.Context, systemInstruction, userTurn string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, FakeCall{SystemInstruction: systemInstruction, UserTurn: userTurn})
	if f.Err != nil {
		return "", f.Err
	}
	return f.Output, nil
}
