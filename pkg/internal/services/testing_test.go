package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/echonet/echonet/pkg/internal/models"
	"github.com/echonet/echonet/pkg/internal/platform"
	"github.com/echonet/echonet/pkg/internal/registry"
)

const (
	testGuild    = "guild-1"
	testCategory = "category-1"
	testMenu     = "menu-1"
	testOwner    = "owner-1"
	testBot      = "bot-1"
)

var baseTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeChannel struct {
	guildId    string
	name       string
	userLimit  int
	overwrites map[string]platform.Overwrite
}

// fakeClient is an in-memory stand-in for the chat platform. Error fields
// let tests inject failures on specific calls.
type fakeClient struct {
	channels map[string]*fakeChannel
	caps     map[string]platform.CapabilitySet
	voice    map[string]string
	members  map[string]*platform.Member
	missing  map[string]bool

	nextId          int
	createErr       error
	deleteErr       map[string]error
	overwriteErr    error
	overwriteErrFor map[string]error
	disconnectErr   error

	deleted      []string
	disconnected []string
	dms          map[string][]string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		channels:        map[string]*fakeChannel{},
		caps:            map[string]platform.CapabilitySet{},
		voice:           map[string]string{},
		members:         map[string]*platform.Member{},
		missing:         map[string]bool{},
		deleteErr:       map[string]error{},
		overwriteErrFor: map[string]error{},
		dms:             map[string][]string{},
	}
}

func allCaps() platform.CapabilitySet {
	return platform.CapabilitySet{
		platform.CapManageChannels: true,
		platform.CapViewChannel:    true,
		platform.CapSendMessages:   true,
		platform.CapEmbedLinks:     true,
		platform.CapReadHistory:    true,
		platform.CapManageMessages: true,
		platform.CapMoveMembers:    true,
	}
}

func (v *fakeClient) BotUserID() string {
	return testBot
}

func (v *fakeClient) CreateVoiceChannel(_ context.Context, guildId, _, name string, overwrites []platform.Overwrite) (string, error) {
	if v.createErr != nil {
		return "", v.createErr
	}

	v.nextId++
	channelId := fmt.Sprintf("chan-%d", v.nextId)
	channel := &fakeChannel{guildId: guildId, name: name, overwrites: map[string]platform.Overwrite{}}
	for _, overwrite := range overwrites {
		channel.overwrites[overwrite.TargetID] = overwrite
	}
	v.channels[channelId] = channel

	return channelId, nil
}

func (v *fakeClient) EditChannel(_ context.Context, channelId string, edit platform.ChannelEdit) error {
	channel, ok := v.channels[channelId]
	if !ok {
		return platform.ErrNotFound
	}
	if edit.Name != "" {
		channel.name = edit.Name
	}
	if edit.UserLimit != nil {
		channel.userLimit = *edit.UserLimit
	}
	return nil
}

func (v *fakeClient) DeleteChannel(_ context.Context, channelId, _ string) error {
	if err := v.deleteErr[channelId]; err != nil {
		return err
	}
	if _, ok := v.channels[channelId]; !ok {
		return platform.ErrNotFound
	}
	delete(v.channels, channelId)
	v.deleted = append(v.deleted, channelId)
	return nil
}

func (v *fakeClient) ChannelOverwrites(_ context.Context, channelId string) ([]platform.Overwrite, error) {
	channel, ok := v.channels[channelId]
	if !ok {
		return nil, platform.ErrNotFound
	}
	var out []platform.Overwrite
	for _, overwrite := range channel.overwrites {
		out = append(out, overwrite)
	}
	return out, nil
}

func (v *fakeClient) SetOverwrite(_ context.Context, channelId string, overwrite platform.Overwrite) error {
	if v.overwriteErr != nil {
		return v.overwriteErr
	}
	if err := v.overwriteErrFor[overwrite.TargetID]; err != nil {
		return err
	}
	channel, ok := v.channels[channelId]
	if !ok {
		return platform.ErrNotFound
	}
	channel.overwrites[overwrite.TargetID] = overwrite
	return nil
}

func (v *fakeClient) DeleteOverwrite(_ context.Context, channelId, targetId string) error {
	channel, ok := v.channels[channelId]
	if !ok {
		return platform.ErrNotFound
	}
	if _, ok := channel.overwrites[targetId]; !ok {
		return platform.ErrNotFound
	}
	delete(channel.overwrites, targetId)
	return nil
}

func (v *fakeClient) SendMessage(_ context.Context, channelId, _ string) (string, error) {
	if _, ok := v.channels[channelId]; !ok && v.caps[channelId] == nil {
		return "", platform.ErrNotFound
	}
	return "message-1", nil
}

func (v *fakeClient) DeleteMessage(_ context.Context, _, _ string) error {
	return nil
}

func (v *fakeClient) SendDirectMessage(_ context.Context, userId, content string) error {
	v.dms[userId] = append(v.dms[userId], content)
	return nil
}

func (v *fakeClient) FetchMember(_ context.Context, _, userId string) (*platform.Member, error) {
	if v.missing[userId] {
		return nil, platform.ErrNotFound
	}
	if member, ok := v.members[userId]; ok {
		return member, nil
	}
	return &platform.Member{UserID: userId}, nil
}

func (v *fakeClient) MemberVoiceChannel(_ context.Context, guildId, userId string) (string, error) {
	return v.voice[guildId+"/"+userId], nil
}

func (v *fakeClient) DisconnectMember(_ context.Context, guildId, userId string) error {
	if v.disconnectErr != nil {
		return v.disconnectErr
	}
	delete(v.voice, guildId+"/"+userId)
	v.disconnected = append(v.disconnected, userId)
	return nil
}

func (v *fakeClient) Capabilities(_ context.Context, channelId string) (platform.CapabilitySet, error) {
	if caps, ok := v.caps[channelId]; ok {
		return caps, nil
	}
	if _, ok := v.channels[channelId]; ok {
		return allCaps(), nil
	}
	return nil, platform.ErrNotFound
}

func newTestEngine(t *testing.T) (*Engine, *fakeClient) {
	t.Helper()

	dir := t.TempDir()
	store := registry.NewStore(filepath.Join(dir, "channels.json"))
	settings := registry.NewSettingsStore(filepath.Join(dir, "guilds.json"))
	client := newFakeClient()
	client.caps[testCategory] = allCaps()
	client.caps[testMenu] = allCaps()

	if err := settings.SetGuild(&models.GuildConfig{
		GuildID:         testGuild,
		VoiceCategoryID: testCategory,
		MenuChannelID:   testMenu,
	}); err != nil {
		t.Fatalf("seed guild config: %v", err)
	}

	engine := NewEngine(store, settings, client)
	engine.now = func() time.Time { return baseTime }

	return engine, client
}

func mustCreate(t *testing.T, engine *Engine, mode models.AccessMode) *models.ChannelRecord {
	t.Helper()

	record, err := engine.CreateChannel(context.Background(), testGuild, testOwner, "hangout", 7, mode)
	if err != nil {
		t.Fatalf("create channel: %v", err)
	}
	return record
}
