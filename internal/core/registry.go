package core

import (
	"cmp"
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/wirerelay/internal/metrics"
)

// Registry is the directory of channels and nicknames shared by all sessions.
//
// Channel membership and nickname ownership sit behind independent locks.
// Delivery only enqueues onto each endpoint's bounded queue, so no network
// write ever happens while a registry lock is held.
type Registry struct {
	log     *zerolog.Logger
	metrics *metrics.Metrics

	chMu     sync.RWMutex
	channels map[string]*Channel

	nickMu    sync.RWMutex
	nicknames map[string]Endpoint
}

// Stats is a point-in-time summary of the registry.
type Stats struct {
	Channels  int `json:"channels"`
	Members   int `json:"members"`
	Nicknames int `json:"nicknames"`
}

// ChannelInfo describes one channel in a snapshot.
type ChannelInfo struct {
	Name    string `json:"name"`
	Members int    `json:"members"`
}

// NewRegistry creates an empty registry. Both arguments may be nil.
func NewRegistry(logger *zerolog.Logger, m *metrics.Metrics) *Registry {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Registry{
		log:       logger,
		metrics:   m,
		channels:  make(map[string]*Channel),
		nicknames: make(map[string]Endpoint),
	}
}

// Join adds ep to channel, creating the channel on first use.
func (r *Registry) Join(channel string, ep Endpoint) {
	r.chMu.Lock()
	defer r.chMu.Unlock()

	ch, ok := r.channels[channel]
	if !ok {
		ch = NewChannel(channel)
		r.channels[channel] = ch
		r.log.Debug().Str("channel", channel).Msg("channel created")
	}
	ch.Add(ep)
	r.metrics.SetChannels(len(r.channels))
}

// Leave removes ep from channel and drops the channel once it is empty.
// Unknown channels and non-members are ignored.
func (r *Registry) Leave(channel string, ep Endpoint) {
	if channel == "" {
		return
	}

	r.chMu.Lock()
	defer r.chMu.Unlock()

	ch, ok := r.channels[channel]
	if !ok {
		return
	}
	ch.Remove(ep)
	if ch.Empty() {
		delete(r.channels, channel)
		r.log.Debug().Str("channel", channel).Msg("channel removed")
	}
	r.metrics.SetChannels(len(r.channels))
}

// ListChannels returns a sorted copy of the current channel names.
func (r *Registry) ListChannels() []string {
	r.chMu.RLock()
	names := lo.Keys(r.channels)
	r.chMu.RUnlock()

	slices.Sort(names)
	return names
}

// Channels returns a sorted snapshot of channel names with member counts.
func (r *Registry) Channels() []ChannelInfo {
	r.chMu.RLock()
	infos := lo.MapToSlice(r.channels, func(name string, ch *Channel) ChannelInfo {
		return ChannelInfo{Name: name, Members: ch.Len()}
	})
	r.chMu.RUnlock()

	slices.SortFunc(infos, func(a, b ChannelInfo) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return infos
}

// Members returns how many endpoints are in channel.
func (r *Registry) Members(channel string) int {
	r.chMu.RLock()
	defer r.chMu.RUnlock()

	if ch, ok := r.channels[channel]; ok {
		return ch.Len()
	}
	return 0
}

// IsMember reports whether ep belongs to channel.
func (r *Registry) IsMember(channel string, ep Endpoint) bool {
	r.chMu.RLock()
	defer r.chMu.RUnlock()

	ch, ok := r.channels[channel]
	return ok && ch.Has(ep)
}

// Broadcast delivers message to every member of channel. A failing member is
// logged and skipped; it stays in the channel until it leaves.
func (r *Registry) Broadcast(channel, message string) {
	r.chMu.RLock()
	defer r.chMu.RUnlock()

	ch, ok := r.channels[channel]
	if !ok {
		return
	}
	r.metrics.Broadcast()

	for id, ep := range ch.members {
		if err := ep.Deliver(message); err != nil {
			r.metrics.DeliveryDropped()
			r.log.Warn().Err(err).Str("channel", channel).Str("endpoint", id).Msg("broadcast delivery failed")
		}
	}
}

// RegisterNickname maps nick to ep, replacing any previous owner.
// It does not check availability; see ClaimNickname.
func (r *Registry) RegisterNickname(nick string, ep Endpoint) {
	r.nickMu.Lock()
	defer r.nickMu.Unlock()

	r.nicknames[nick] = ep
	r.metrics.SetNicknames(len(r.nicknames))
}

// UnregisterNickname removes nick if present.
func (r *Registry) UnregisterNickname(nick string) {
	r.nickMu.Lock()
	defer r.nickMu.Unlock()

	if _, ok := r.nicknames[nick]; !ok {
		return
	}
	delete(r.nicknames, nick)
	r.metrics.SetNicknames(len(r.nicknames))
}

// ReleaseNickname removes nick only while ep still owns it.
func (r *Registry) ReleaseNickname(nick string, ep Endpoint) {
	r.nickMu.Lock()
	defer r.nickMu.Unlock()

	if owner, ok := r.nicknames[nick]; ok && owner.ID() == ep.ID() {
		delete(r.nicknames, nick)
		r.metrics.SetNicknames(len(r.nicknames))
	}
}

// IsNicknameAvailable reports whether nobody holds nick.
func (r *Registry) IsNicknameAvailable(nick string) bool {
	r.nickMu.RLock()
	defer r.nickMu.RUnlock()

	_, taken := r.nicknames[nick]
	return !taken
}

// ClaimNickname atomically checks that nick is free, releases previous
// (when ep owns it) and registers nick for ep. It returns false and changes
// nothing when nick is already held, including by ep itself.
func (r *Registry) ClaimNickname(nick, previous string, ep Endpoint) bool {
	r.nickMu.Lock()
	defer r.nickMu.Unlock()

	if _, taken := r.nicknames[nick]; taken {
		return false
	}
	if owner, ok := r.nicknames[previous]; ok && owner.ID() == ep.ID() {
		delete(r.nicknames, previous)
	}
	r.nicknames[nick] = ep
	r.metrics.SetNicknames(len(r.nicknames))
	return true
}

// Whisper sends content from one nickname to another. Every outcome,
// including lookup failures, is reported to reply.
func (r *Registry) Whisper(from, to, content string, reply Endpoint) {
	r.nickMu.RLock()
	_, fromOK := r.nicknames[from]
	target, toOK := r.nicknames[to]
	r.nickMu.RUnlock()

	switch {
	case !fromOK:
		r.metrics.Whisper("unknown_sender")
		r.tell(reply, userNotFound(from))
	case !toOK:
		r.metrics.Whisper("unknown_target")
		r.tell(reply, userNotFound(to))
	default:
		if err := target.Deliver(WhisperLine(from, content)); err != nil {
			r.metrics.Whisper("failed")
			r.log.Warn().Err(err).Str("from", from).Str("to", to).Msg("whisper delivery failed")
			r.tell(reply, whisperFailed(err))
			return
		}
		r.metrics.Whisper("sent")
		r.tell(reply, whisperSent(to))
	}
}

// Stats summarizes channels, memberships and nicknames.
func (r *Registry) Stats() Stats {
	var st Stats

	r.chMu.RLock()
	st.Channels = len(r.channels)
	for _, ch := range r.channels {
		st.Members += ch.Len()
	}
	r.chMu.RUnlock()

	r.nickMu.RLock()
	st.Nicknames = len(r.nicknames)
	r.nickMu.RUnlock()

	return st
}

func (r *Registry) tell(ep Endpoint, line string) {
	if ep == nil {
		return
	}
	if err := ep.Deliver(line); err != nil {
		r.log.Warn().Err(err).Str("endpoint", ep.ID()).Msg("reply delivery failed")
	}
}
