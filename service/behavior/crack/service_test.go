package crack

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"

	"github.com/hackwire/simcore/model/types"
)

func TestService_Step(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	assert.Nil(t, err)

	service := New()
	step, err := service.Method(types.StepMethod)
	assert.Nil(t, err)

	input := &Input{Hash: string(hash), Candidates: []string{"letmein", "hunter2", "qwerty"}}

	output := &types.StepOutput{}
	assert.Nil(t, step(context.Background(), input, output))
	assert.False(t, output.Done)
	assert.False(t, output.Failed)
	assert.Equal(t, 33, output.Progress)
	assert.Equal(t, 1, output.Data["attempt"])

	input.Attempt = 1
	output = &types.StepOutput{}
	assert.Nil(t, step(context.Background(), input, output))
	assert.True(t, output.Done)
	assert.Equal(t, "hunter2", output.Data["password"])
}

func TestService_StepExhausted(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	service := New()
	step, _ := service.Method(types.StepMethod)

	input := &Input{Hash: string(hash), Candidates: []string{"wrong"}}
	output := &types.StepOutput{}
	assert.Nil(t, step(context.Background(), input, output))
	assert.True(t, output.Failed)
	assert.Equal(t, "wordlist exhausted", output.Reason)
}

func TestService_StepNoHash(t *testing.T) {
	service := New()
	step, _ := service.Method(types.StepMethod)
	output := &types.StepOutput{}
	assert.Nil(t, step(context.Background(), &Input{}, output))
	assert.True(t, output.Failed)

	_, err := service.Method("other")
	assert.NotNil(t, err)
}
