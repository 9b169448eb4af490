package bot

// sessionState задает явное перечисление состояний диалога вместо
// глобальных множеств "кто что сейчас вводит".
type sessionState int

const (
	stateIdle sessionState = iota
	stateAwaitingReferralCode
	stateAwaitingTopupAmount
	stateAwaitingBroadcast
)

type session struct {
	state sessionState

	// Реферальный код из deep-link /start, доживает до регистрации.
	startRefCode string
}

func (b *Bot) getSession(userID int64) *session {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[userID]
	if !ok {
		s = &session{}
		b.sessions[userID] = s
	}
	return s
}

func (b *Bot) setState(userID int64, state sessionState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[userID]
	if !ok {
		s = &session{}
		b.sessions[userID] = s
	}
	s.state = state
}

func (b *Bot) getState(userID int64) sessionState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.sessions[userID]; ok {
		return s.state
	}
	return stateIdle
}

func (b *Bot) setStartRefCode(userID int64, code string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[userID]
	if !ok {
		s = &session{}
		b.sessions[userID] = s
	}
	s.startRefCode = code
}

func (b *Bot) takeStartRefCode(userID int64) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.sessions[userID]; ok {
		code := s.startRefCode
		s.startRefCode = ""
		return code
	}
	return ""
}
