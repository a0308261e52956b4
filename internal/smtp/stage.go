package smtp

// Stage is one request/reply unit of the fixed transaction plan.
type Stage int

const (
	StageConnect Stage = iota
	StageBanner
	StageGreeting
	StageAuth
	StageAuthUsername
	StageAuthPassword
	StageMailFrom
	StageRcptTo
	StageDataStart
	StageDataBody
	StageQuit
	// StagePrepare covers building and signing the test message, before connecting.
	StagePrepare
)

var stageNames = map[Stage]string{
	StageConnect:      "Connect",
	StageBanner:       "Banner",
	StageGreeting:     "Greeting",
	StageAuth:         "Authenticate",
	StageAuthUsername: "Authenticate: username",
	StageAuthPassword: "Authenticate: password",
	StageMailFrom:     "Mail-From",
	StageRcptTo:       "Recipient-To",
	StageDataStart:    "Data-start",
	StageDataBody:     "Data-body",
	StageQuit:         "Quit",
	StagePrepare:      "Prepare message",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "Unknown"
}
