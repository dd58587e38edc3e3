package vote

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/discord-votebot/alert"
	"github.com/discord-votebot/common"
	"github.com/discord-votebot/config"
	"github.com/discord-votebot/db/model"
	"github.com/discord-votebot/gateway"
	"github.com/discord-votebot/logging"
	"github.com/discord-votebot/metrics"
	"github.com/discord-votebot/util"
)

// trackedVote is one active vote in memory. The mutex serialises reaction
// events for this vote only, so the gateway's delivery order is preserved
// without stalling unrelated votes. The state field is the per-vote
// compare-and-swap guard that makes finalization happen at most once.
type trackedVote struct {
	mtx     sync.Mutex
	state   int32
	vote    *model.Vote
	rosters map[string]map[string]struct{} // emoji key -> reacting qualifying users
}

func newTrackedVote(vote *model.Vote) *trackedVote {
	return &trackedVote{
		state:   StateActive,
		vote:    vote,
		rosters: make(map[string]map[string]struct{}),
	}
}

func (t *trackedVote) pointByKey(emojiKey string) *model.VotePoint {
	for _, point := range t.vote.Points {
		if point.EmojiKey() == emojiKey {
			return point
		}
	}
	return nil
}

func (t *trackedVote) roster(emojiKey string) map[string]struct{} {
	if t.rosters[emojiKey] == nil {
		t.rosters[emojiKey] = make(map[string]struct{})
	}
	return t.rosters[emojiKey]
}

// snapshotRosters copies the roster map so the tally can run outside the lock.
func (t *trackedVote) snapshotRosters() map[string]map[string]struct{} {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	snapshot := make(map[string]map[string]struct{}, len(t.rosters))
	for key, users := range t.rosters {
		copied := make(map[string]struct{}, len(users))
		for userId := range users {
			copied[userId] = struct{}{}
		}
		snapshot[key] = copied
	}
	return snapshot
}

// VoteController owns the runtime lifecycle of active votes. It is the only
// component that mutates the active set.
type VoteController struct {
	cfg           *config.Config
	dataProvider  DataProvider
	gateway       gateway.Gateway
	metricService *metrics.MetricService

	active    sync.Map // "guildId/voteId" -> *trackedVote
	byMessage sync.Map // messageId -> *trackedVote
	activeCnt int64

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewVoteController(cfg *config.Config, dataProvider DataProvider, gw gateway.Gateway,
	metricService *metrics.MetricService) *VoteController {
	return &VoteController{
		cfg:           cfg,
		dataProvider:  dataProvider,
		gateway:       gw,
		metricService: metricService,
		stopCh:        make(chan struct{}),
	}
}

func activeKey(guildId string, voteId int64) string {
	return fmt.Sprintf("%s/%d", guildId, voteId)
}

// CreateVote persists a draft vote, sends the poll message, activates the
// vote and starts tracking it. A failure after AddVote leaves the vote
// persisted but untracked; the orphan wiper picks those up.
func (c *VoteController) CreateVote(draft *model.Vote, channelId string) (*model.Vote, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}
	draft.ChannelId = channelId

	stored, err := c.dataProvider.AddVote(draft)
	if err != nil {
		return nil, err
	}

	var messageId string
	err = retry.Do(func() error {
		var sendErr error
		messageId, sendErr = c.gateway.SendMessage(channelId, renderPoll(stored))
		return sendErr
	}, common.RetryAttempts, common.RetryDelay, common.RetryErr)
	if err != nil {
		logging.Logger.Errorf("send poll message failed, guildId=%s, voteId=%d, err=%+v",
			stored.GuildId, stored.Id, err)
		return nil, err
	}

	for _, point := range stored.Points {
		if err := c.gateway.AddReaction(channelId, messageId, point.APIName()); err != nil {
			logging.Logger.Errorf("seed reaction failed, voteId=%d, emoji=%s, err=%+v",
				stored.Id, point.APIName(), err)
		}
	}

	stored.MessageId = messageId
	activated, err := c.dataProvider.ActivateVote(stored)
	if err != nil {
		logging.Logger.Errorf("activate vote failed after message send, guildId=%s, voteId=%d, err=%+v",
			stored.GuildId, stored.Id, err)
		return nil, err
	}

	c.RegisterActive(activated)
	c.metricService.IncCreatedVotes()
	logging.Logger.Infof("vote created, guildId=%s, voteId=%d, messageId=%s, points=%d",
		activated.GuildId, activated.Id, activated.MessageId, len(activated.Points))
	return activated, nil
}

// RegisterActive inserts an activated vote into the active set, at most once
// per (guild, vote id).
func (c *VoteController) RegisterActive(vote *model.Vote) {
	if !vote.Activated() {
		logging.Logger.Errorf("refusing to track vote without poll message, guildId=%s, voteId=%d",
			vote.GuildId, vote.Id)
		return
	}
	tracked := newTrackedVote(vote)
	if _, loaded := c.active.LoadOrStore(activeKey(vote.GuildId, vote.Id), tracked); loaded {
		logging.Logger.Errorf("vote already tracked, guildId=%s, voteId=%d", vote.GuildId, vote.Id)
		return
	}
	c.byMessage.Store(vote.MessageId, tracked)
	c.metricService.SetActiveVotes(int(atomic.AddInt64(&c.activeCnt, 1)))
}

// Resume reloads every activated vote from storage after a restart and
// rebuilds its reaction roster from the gateway's live reaction state.
func (c *VoteController) Resume() error {
	votes, err := c.dataProvider.GetAllActivated()
	if err != nil {
		return err
	}
	for _, vote := range votes {
		c.RegisterActive(vote)
		tracked, ok := c.lookupByMessage(vote.MessageId)
		if !ok {
			continue
		}
		c.seedRosters(tracked)
	}
	logging.Logger.Infof("resumed %d active votes", len(votes))
	return nil
}

func (c *VoteController) seedRosters(t *trackedVote) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	for _, point := range t.vote.Points {
		userIds, err := c.gateway.MessageReactions(t.vote.ChannelId, t.vote.MessageId, point.APIName())
		if err != nil {
			logging.Logger.Errorf("rebuild roster failed, voteId=%d, emoji=%s, err=%+v",
				t.vote.Id, point.APIName(), err)
			continue
		}
		for _, userId := range userIds {
			if c.userQualifies(t, userId) {
				t.roster(point.EmojiKey())[userId] = struct{}{}
			}
		}
	}
}

// OnReactionAdd applies a reaction-add event to the tracked vote bound to the
// message, if any. Events for unknown messages are no-ops: a reaction racing
// ahead of the vote's activation is expected, not an error.
func (c *VoteController) OnReactionAdd(channelId, messageId, userId, emojiKey string) {
	defer c.recoverEvent("reaction add", messageId)

	tracked, ok := c.lookupByMessage(messageId)
	if !ok {
		return
	}

	finalizeNow := func() bool {
		tracked.mtx.Lock()
		defer tracked.mtx.Unlock()
		if atomic.LoadInt32(&tracked.state) != StateActive {
			return false
		}

		point := tracked.pointByKey(emojiKey)
		if point == nil {
			return false
		}
		if !c.userQualifies(tracked, userId) {
			return false
		}

		if tracked.vote.Exceptional {
			c.retractOtherPoints(tracked, point, userId)
		}
		tracked.roster(point.EmojiKey())[userId] = struct{}{}
		c.metricService.IncReactionEvents()

		if tracked.vote.WinThreshold > 0 {
			_, met := TallyVote(tracked.vote, tracked.rosters, nil)
			return met
		}
		return false
	}()

	if finalizeNow {
		c.finalize(tracked, TriggerThreshold)
	}
}

// OnReactionRemove undoes a user's reaction on the matching point.
func (c *VoteController) OnReactionRemove(channelId, messageId, userId, emojiKey string) {
	defer c.recoverEvent("reaction remove", messageId)

	tracked, ok := c.lookupByMessage(messageId)
	if !ok {
		return
	}

	tracked.mtx.Lock()
	defer tracked.mtx.Unlock()
	if atomic.LoadInt32(&tracked.state) != StateActive {
		return
	}
	point := tracked.pointByKey(emojiKey)
	if point == nil {
		return
	}
	delete(tracked.roster(point.EmojiKey()), userId)
	c.metricService.IncReactionEvents()
}

// retractOtherPoints enforces single choice: the user's reactions on every
// other point are erased, locally and on the gateway. Called with the tracked
// vote's mutex held.
func (c *VoteController) retractOtherPoints(t *trackedVote, chosen *model.VotePoint, userId string) {
	for _, other := range t.vote.Points {
		if other.Id == chosen.Id {
			continue
		}
		if _, ok := t.roster(other.EmojiKey())[userId]; !ok {
			continue
		}
		delete(t.roster(other.EmojiKey()), userId)
		err := c.gateway.RemoveReaction(t.vote.ChannelId, t.vote.MessageId, other.APIName(), userId)
		if err != nil {
			logging.Logger.Errorf("retract reaction failed, voteId=%d, userId=%s, emoji=%s, err=%+v",
				t.vote.Id, userId, other.APIName(), err)
		}
	}
}

func (c *VoteController) userQualifies(t *trackedVote, userId string) bool {
	if len(t.vote.RoleFilters) == 0 {
		return true
	}
	roleIds, err := c.gateway.RoleMembership(t.vote.GuildId, userId)
	if err != nil {
		logging.Logger.Errorf("role membership lookup failed, guildId=%s, userId=%s, err=%+v",
			t.vote.GuildId, userId, err)
		return false
	}
	for _, filter := range t.vote.RoleFilters {
		if util.IndexOf(filter.RoleId, roleIds) >= 0 {
			return true
		}
	}
	return false
}

// eligibleUsers builds the qualifying-user roster for default accounting.
func (c *VoteController) eligibleUsers(t *trackedVote) []string {
	memberIds, err := c.gateway.GuildMembers(t.vote.GuildId)
	if err != nil {
		logging.Logger.Errorf("guild member listing failed, guildId=%s, err=%+v", t.vote.GuildId, err)
		return nil
	}
	if len(t.vote.RoleFilters) == 0 {
		return memberIds
	}
	eligible := make([]string, 0, len(memberIds))
	for _, userId := range memberIds {
		if c.userQualifies(t, userId) {
			eligible = append(eligible, userId)
		}
	}
	return eligible
}

// SweepLoop runs the periodic expiry sweep until Stop is called. It is the
// only path that can finalize a timer vote nobody reacted to.
func (c *VoteController) SweepLoop() {
	interval := time.Duration(c.cfg.VoteConfig.SweepIntervalSec) * time.Second
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.sweepExpired(time.Now().Unix())
		}
	}
}

func (c *VoteController) sweepExpired(now int64) {
	defer c.recoverEvent("sweep", "")
	start := time.Now()

	expired := make([]*trackedVote, 0)
	c.active.Range(func(_, value interface{}) bool {
		tracked := value.(*trackedVote)
		if tracked.vote.Expired(now) {
			expired = append(expired, tracked)
		}
		return true
	})
	for _, tracked := range expired {
		c.finalize(tracked, TriggerTimer)
	}

	c.metricService.SetSweepDuration(time.Since(start))
}

// InterruptVote finalizes an active vote on an authorized manual command.
func (c *VoteController) InterruptVote(guildId string, voteId int64) error {
	value, ok := c.active.Load(activeKey(guildId, voteId))
	if !ok {
		return common.ErrVoteNotFound
	}
	if c.finalize(value.(*trackedVote), TriggerInterrupt) {
		c.metricService.IncInterruptedVotes()
	}
	return nil
}

// ListActiveVotes returns the tracked votes of a guild.
func (c *VoteController) ListActiveVotes(guildId string) []*model.Vote {
	votes := make([]*model.Vote, 0)
	c.active.Range(func(_, value interface{}) bool {
		tracked := value.(*trackedVote)
		if tracked.vote.GuildId == guildId && atomic.LoadInt32(&tracked.state) == StateActive {
			votes = append(votes, tracked.vote)
		}
		return true
	})
	return votes
}

// Stop cancels future sweeps. In-flight finalizations keep running; untracked
// state is rebuilt from storage by Resume on the next start.
func (c *VoteController) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}

// finalize moves a vote from Active to Closed exactly once and reports
// whether this call won the transition. Whichever trigger loses the
// compare-and-swap returns false without side effects.
func (c *VoteController) finalize(t *trackedVote, trigger string) bool {
	if !atomic.CompareAndSwapInt32(&t.state, StateActive, StateFinalizing) {
		return false
	}
	logging.Logger.Infof("finalizing vote, guildId=%s, voteId=%d, trigger=%s",
		t.vote.GuildId, t.vote.Id, trigger)

	rosters := t.snapshotRosters()
	var eligible []string
	if t.vote.HasDefault {
		eligible = c.eligibleUsers(t)
	}
	ranking, _ := TallyVote(t.vote, rosters, eligible)

	err := retry.Do(func() error {
		_, sendErr := c.gateway.SendMessage(t.vote.ChannelId, renderResult(t.vote, ranking))
		return sendErr
	}, common.RetryAttempts, common.RetryDelay, common.RetryErr)
	if err != nil {
		logging.Logger.Errorf("announce result failed, guildId=%s, voteId=%d, err=%+v",
			t.vote.GuildId, t.vote.Id, err)
		c.metricService.IncControllerErr()
	}

	if !c.dataProvider.DeleteVote(t.vote) {
		logging.Logger.Errorf("delete finalized vote failed, guildId=%s, voteId=%d",
			t.vote.GuildId, t.vote.Id)
		c.metricService.IncControllerErr()
		alert.SendTelegramMessage(c.cfg.AlertConfig.Identity, c.cfg.AlertConfig.TelegramBotId,
			c.cfg.AlertConfig.TelegramChatId,
			fmt.Sprintf("failed to delete finalized vote %d of guild %s", t.vote.Id, t.vote.GuildId))
	}

	atomic.StoreInt32(&t.state, StateClosed)
	c.active.Delete(activeKey(t.vote.GuildId, t.vote.Id))
	c.byMessage.Delete(t.vote.MessageId)
	c.metricService.SetActiveVotes(int(atomic.AddInt64(&c.activeCnt, -1)))
	c.metricService.IncFinalizedVotes()
	return true
}

func (c *VoteController) lookupByMessage(messageId string) (*trackedVote, bool) {
	value, ok := c.byMessage.Load(messageId)
	if !ok {
		return nil, false
	}
	return value.(*trackedVote), true
}

// recoverEvent keeps a malformed event or a panicking handler from taking
// down the sweep goroutine or the gateway's handler pool.
func (c *VoteController) recoverEvent(op, messageId string) {
	if r := recover(); r != nil {
		logging.Logger.Errorf("recovered panic in %s, messageId=%s, err=%+v", op, messageId, r)
		c.metricService.IncControllerErr()
	}
}

func validateDraft(draft *model.Vote) error {
	if len(draft.Points) == 0 {
		return common.ErrEmptyPoints
	}
	if draft.WinThreshold > 0 && len(draft.Points) != 2 {
		return common.ErrInvalidDraft
	}
	if draft.HasDefault && len(draft.Points) < 2 {
		return common.ErrInvalidDraft
	}
	return nil
}
