package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceActionString(t *testing.T) {
	assert.Equal(t, "Start", ActionStart.String())
	assert.Equal(t, "Stop", ActionStop.String())
	assert.Equal(t, "Restart", ActionRestart.String())
	assert.Equal(t, "ReloadDaemon", ActionReloadDaemon.String())
	assert.Equal(t, "EnableAndStart", ActionEnableAndStart.String())
	assert.Equal(t, "Unknown", ServiceAction(99).String())
}

func TestDeploymentStageString(t *testing.T) {
	assert.Equal(t, "Fetching", StageFetching.String())
	assert.Equal(t, "Jailing", StageJailing.String())
	assert.Equal(t, "Building", StageBuilding.String())
	assert.Equal(t, "Restarting", StageRestarting.String())
	assert.Equal(t, "Done", StageDone.String())
	assert.Equal(t, "Failed", StageFailed.String())
	assert.Equal(t, "Unknown", DeploymentStage(99).String())
}

func TestEnvMapDiscardsOrderKeepsValues(t *testing.T) {
	m := EnvMap([]EnvVar{{Key: "A", Value: "1"}, {Key: "B", Value: "2"}})
	assert.Equal(t, map[string]string{"A": "1", "B": "2"}, m)
}
