package kernel

type UserID string

func NewUserID(id string) UserID { return UserID(id) }
func (u UserID) String() string  { return string(u) }
func (u UserID) IsEmpty() bool   { return string(u) == "" }

type ApplicationID string

func NewApplicationID(id string) ApplicationID { return ApplicationID(id) }
func (a ApplicationID) String() string         { return string(a) }
func (a ApplicationID) IsEmpty() bool          { return string(a) == "" }

// ConsumerID identifies either a user or an application.
type ConsumerID string

func NewConsumerID(id string) ConsumerID { return ConsumerID(id) }
func (c ConsumerID) String() string      { return string(c) }
func (c ConsumerID) IsEmpty() bool       { return string(c) == "" }

// ConsumerKind tags which directory a consumer was resolved from.
type ConsumerKind string

const (
	ConsumerUser        ConsumerKind = "user"
	ConsumerApplication ConsumerKind = "application"
)
