package bot

import (
	"context"
	"fmt"

	"consultbot/internal/booking"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ChannelOracle answers channel membership via getChatMember.
type ChannelOracle struct {
	tg        TelegramClient
	channelID int64
}

func NewChannelOracle(tg TelegramClient, channelID int64) *ChannelOracle {
	return &ChannelOracle{tg: tg, channelID: channelID}
}

func (o *ChannelOracle) CheckMembership(ctx context.Context, userID int64) (booking.Membership, error) {
	if err := ctx.Err(); err != nil {
		return booking.MembershipUnknown, err
	}
	member, err := o.tg.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: o.channelID,
			UserID: userID,
		},
	})
	if err != nil {
		return booking.MembershipUnknown, fmt.Errorf("get chat member: %w", deliveryError(err))
	}
	switch member.Status {
	case "creator", "administrator", "member":
		return booking.Member, nil
	case "restricted":
		if member.IsMember {
			return booking.Member, nil
		}
		return booking.NotMember, nil
	case "left", "kicked":
		return booking.NotMember, nil
	}
	return booking.MembershipUnknown, fmt.Errorf("unexpected member status %q", member.Status)
}
