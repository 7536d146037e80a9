package wire

// Host methods invoked through Channel.Call.
const (
	MethodDispatch                  = "dispatch"
	MethodSetResult                 = "setResult"
	MethodSetRoot                   = "setRoot"
	MethodCurrentTab                = "currentTab"
	MethodIsStackRoot               = "isStackRoot"
	MethodFindSceneID               = "findSceneIdByModuleName"
	MethodCurrentRoute              = "currentRoute"
	MethodRouteGraph                = "routeGraph"
	MethodSignalFirstRenderComplete = "signalFirstRenderComplete"
	MethodSetLeftBarButtonItem      = "setLeftBarButtonItem"
	MethodSetRightBarButtonItem     = "setRightBarButtonItem"
	MethodSetLeftBarButtonItems     = "setLeftBarButtonItems"
	MethodSetRightBarButtonItems    = "setRightBarButtonItems"
)

// Events emitted by the host on the shared channel.
const (
	// EventNavigation carries scene lifecycle and result notifications.
	// The KeyOn field selects the sub-kind (OnComponentResult, ...).
	EventNavigation = "navigationEvent"

	// EventWillSetRoot fires before the host starts replacing the root.
	EventWillSetRoot = "willSetRoot"

	// EventDidSetRoot fires after the root was replaced. Carries KeyTag
	// when the replacement was requested by the bridge.
	EventDidSetRoot = "didSetRoot"

	// EventSwitchTab reports a user-initiated tab switch ("from-to" in KeyIndex).
	EventSwitchTab = "switchTab"

	// EventBarButtonItemClick reports a tap on a bound bar button.
	EventBarButtonItemClick = "barButtonItemClick"
)

// Sub-kinds of EventNavigation.
const (
	OnComponentResult     = "componentResult"
	OnComponentAppear     = "componentAppear"
	OnComponentDisappear  = "componentDisappear"
	OnComponentDidUnmount = "componentDidUnmount"
)

// Payload keys.
const (
	KeySceneID     = "sceneId"
	KeyModuleName  = "moduleName"
	KeyAction      = "action"
	KeyParams      = "params"
	KeyOn          = "on"
	KeyRequestCode = "requestCode"
	KeyResultCode  = "resultCode"
	KeyResultData  = "resultData"
	KeyIndex       = "index"
	KeyTag         = "tag"
	KeyLayout      = "layout"
	KeySticky      = "sticky"
	KeyFrom        = "from"
	KeyTo          = "to"
	KeyProps       = "props"
	KeyOptions     = "options"
	KeyItem        = "item"
	KeyItems       = "items"
	KeyInclusive   = "inclusive"
	KeyPopToRoot   = "popToRoot"
)

// Result codes understood by both sides.
const (
	ResultOK     = -1
	ResultCancel = 0
)

// IsGlobalCode reports whether a request code addresses the global
// correlation map. Zero and positive codes address the per-scene slot.
func IsGlobalCode(code int) bool {
	return code < 0
}
