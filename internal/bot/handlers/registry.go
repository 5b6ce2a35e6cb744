package handlers

import (
	"github.com/edgard/whatsdex/internal/command"
	"github.com/edgard/whatsdex/internal/permission"
)

// Command categories shown in the menu.
const (
	CategoryMain  = "main"
	CategoryGroup = "group"
	CategoryOwner = "owner"
	CategoryTools = "tools"
)

// MenfessCost is the coin price of one anonymous message.
const MenfessCost = 5

// RegisterAllCommands returns the descriptor of every built-in command.
func RegisterAllCommands(deps HandlerDeps) []command.Descriptor {
	return []command.Descriptor{
		{
			Name:        "ping",
			Category:    CategoryMain,
			Description: "Check that the bot is alive",
			Handler:     NewPingHandler(deps),
		},
		{
			Name:        "menu",
			Aliases:     []string{"help", "allmenu", "list"},
			Category:    CategoryMain,
			Description: "List commands, or show one in detail",
			Usage:       "[command]",
			Handler:     NewMenuHandler(deps),
		},
		{
			Name:        "owner",
			Category:    CategoryMain,
			Description: "Show how to reach the bot owner",
			Handler:     NewOwnerHandler(deps),
		},
		{
			Name:        "coin",
			Aliases:     []string{"balance"},
			Category:    CategoryMain,
			Description: "Show your coin balance",
			Handler:     NewCoinHandler(deps),
		},
		{
			Name:        "menfess",
			Category:    CategoryTools,
			Description: "Send an anonymous message, or answer one",
			Usage:       "<number> <text> | reply <id> <text>",
			Permissions: permission.Requirement{Private: true, Coin: MenfessCost},
			Handler:     NewMenfessHandler(deps),
		},
		{
			Name:        "mute",
			Category:    CategoryGroup,
			Description: "Mute the group, or the mentioned members",
			Usage:       "[owner] [@member...]",
			Permissions: permission.Requirement{Admin: true, Group: true},
			Handler:     NewMuteHandler(deps),
		},
		{
			Name:        "unmute",
			Category:    CategoryGroup,
			Description: "Lift a group or member mute",
			Usage:       "[@member...]",
			Permissions: permission.Requirement{Admin: true, Group: true},
			Handler:     NewUnmuteHandler(deps),
		},
		{
			Name:        "setoption",
			Aliases:     []string{"option"},
			Category:    CategoryGroup,
			Description: "Show or toggle group moderation options",
			Usage:       "[antilink|autokick|antimedia <kind>] [on|off]",
			Permissions: permission.Requirement{Admin: true, Group: true},
			Handler:     NewSetOptionHandler(deps),
		},
		{
			Name:        "warnings",
			Category:    CategoryGroup,
			Description: "Show the warning count of a member",
			Usage:       "[@member]",
			Permissions: permission.Requirement{Group: true},
			Handler:     NewWarningsHandler(deps),
		},
		{
			Name:        "resetwarn",
			Category:    CategoryGroup,
			Description: "Clear the warnings of members",
			Usage:       "@member...",
			Permissions: permission.Requirement{Admin: true, Group: true},
			Handler:     NewResetWarnHandler(deps),
		},
		{
			Name:        "kick",
			Category:    CategoryGroup,
			Description: "Remove members from the group",
			Usage:       "@member...",
			Permissions: permission.Requirement{Admin: true, BotAdmin: true, Group: true, Restrict: true},
			Handler:     NewKickHandler(deps),
		},
		{
			Name:        "add",
			Category:    CategoryGroup,
			Description: "Add numbers to the group",
			Usage:       "<number...>",
			Permissions: permission.Requirement{Admin: true, BotAdmin: true, Group: true, Restrict: true},
			Handler:     NewAddHandler(deps),
		},
		{
			Name:        "grouplink",
			Aliases:     []string{"link"},
			Category:    CategoryGroup,
			Description: "Show the group invite link",
			Permissions: permission.Requirement{BotAdmin: true, Group: true},
			Handler:     NewGroupLinkHandler(deps),
		},
		{
			Name:        "setdesc",
			Category:    CategoryGroup,
			Description: "Show or change the group description",
			Usage:       "[text]",
			Permissions: permission.Requirement{Admin: true, BotAdmin: true, Group: true},
			Handler:     NewSetDescHandler(deps),
		},
		{
			Name:        "ban",
			Category:    CategoryOwner,
			Description: "Ban users from the bot",
			Usage:       "@user...",
			Permissions: permission.Requirement{Owner: true},
			Handler:     NewBanHandler(deps, true),
		},
		{
			Name:        "unban",
			Category:    CategoryOwner,
			Description: "Lift a ban",
			Usage:       "@user...",
			Permissions: permission.Requirement{Owner: true},
			Handler:     NewBanHandler(deps, false),
		},
		{
			Name:        "addpremium",
			Category:    CategoryOwner,
			Description: "Grant premium, permanently or for some days",
			Usage:       "@user [days]",
			Permissions: permission.Requirement{Owner: true},
			Handler:     NewAddPremiumHandler(deps),
		},
		{
			Name:        "addcoin",
			Category:    CategoryOwner,
			Description: "Credit or debit coins",
			Usage:       "@user <amount>",
			Permissions: permission.Requirement{Owner: true},
			Handler:     NewAddCoinHandler(deps),
		},
		{
			Name:        "botmode",
			Aliases:     []string{"mode"},
			Category:    CategoryOwner,
			Description: "Show or change where the bot answers",
			Usage:       "[public|group|private|self]",
			Permissions: permission.Requirement{Owner: true},
			Handler:     NewBotModeHandler(deps),
		},
		{
			Name:               "diag",
			Category:           CategoryOwner,
			Description:        "Read-only diagnostics",
			Usage:              "<" + diagTopicList + ">",
			Permissions:        permission.Requirement{Owner: true},
			Handler:            NewDiagHandler(deps),
			SuppressErrorReply: true,
		},
	}
}

// Register adds every built-in command to reg. A name collision or a
// malformed requirement aborts startup.
func Register(reg *command.Registry, deps HandlerDeps) error {
	if deps.Registry == nil {
		deps.Registry = reg
	}
	return reg.RegisterAll(RegisterAllCommands(deps)...)
}
