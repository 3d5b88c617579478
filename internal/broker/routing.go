package broker

var (
	StreamName        = "MESSAGES"
	SubjectGlobalRoom = StreamName + "." + "room.global"
)
